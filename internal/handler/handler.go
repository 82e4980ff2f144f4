package handler

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"gymtrack/internal/attendance"
	"gymtrack/internal/member"
	"gymtrack/internal/tabular"
)

// Probe photos are transient: one fixed path per direction, overwritten on
// every attempt.
const (
	entryProbeName = "temp_entry.jpg"
	exitProbeName  = "temp_exit.jpg"
)

// Handler binds the HTTP surface to the registry and engine.
type Handler struct {
	registry *member.Registry
	engine   *attendance.Engine
	dataDir  string
}

// New creates a handler. dataDir holds the transient probe images.
func New(registry *member.Registry, engine *attendance.Engine, dataDir string) *Handler {
	return &Handler{registry: registry, engine: engine, dataDir: dataDir}
}

// ---------- Members ----------

// RegisterMember handles registration. Expects a multipart form with fields
// name, email, mobile, membership, fee and a photo file.
func (h *Handler) RegisterMember(c *gin.Context) {
	fee, ok := parseFee(c, c.PostForm("fee"))
	if !ok {
		return
	}

	photo, ok := readPhoto(c)
	if !ok {
		return
	}

	out, err := h.registry.Register(c.Request.Context(), member.RegisterInput{
		Name:       c.PostForm("name"),
		Email:      c.PostForm("email"),
		Mobile:     c.PostForm("mobile"),
		Membership: c.PostForm("membership"),
		Fee:        fee,
		Photo:      photo,
	})
	if err != nil {
		status := http.StatusBadRequest
		if !isValidation(err) {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, outcomeResponse(out))
}

type updateRequest struct {
	Name       string  `json:"name" binding:"required"`
	Email      string  `json:"email" binding:"required"`
	Mobile     string  `json:"mobile" binding:"required"`
	Membership string  `json:"membership" binding:"required"`
	Fee        float64 `json:"fee"`
}

// UpdateMember replaces the editable fields of one member.
func (h *Handler) UpdateMember(c *gin.Context) {
	id, ok := memberID(c)
	if !ok {
		return
	}
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := h.registry.Update(c.Request.Context(), id, member.UpdateInput{
		Name:       req.Name,
		Email:      req.Email,
		Mobile:     req.Mobile,
		Membership: req.Membership,
		Fee:        req.Fee,
	})
	if err != nil {
		switch {
		case errors.Is(err, member.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case isValidation(err):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, outcomeResponse(out))
}

// DeleteMember removes one member and archives the record.
func (h *Handler) DeleteMember(c *gin.Context) {
	id, ok := memberID(c)
	if !ok {
		return
	}

	out, err := h.registry.Delete(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, outcomeResponse(out))
}

// GetMember returns one member.
func (h *Handler) GetMember(c *gin.Context) {
	id, ok := memberID(c)
	if !ok {
		return
	}
	m, err := h.registry.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, m)
}

// ListMembers returns all current members.
func (h *Handler) ListMembers(c *gin.Context) {
	members, err := h.registry.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if members == nil {
		members = []member.Member{}
	}
	c.JSON(http.StatusOK, members)
}

// ExportMembers offers the members table as a CSV download.
func (h *Handler) ExportMembers(c *gin.Context) {
	t, err := h.registry.Export(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	writeCSV(c, "members.csv", t)
}

// ---------- Attendance ----------

// MarkEntry accepts a probe photo, identifies the member and opens today's
// record.
func (h *Handler) MarkEntry(c *gin.Context) {
	h.mark(c, entryProbeName, h.engine.MarkEntry)
}

// MarkExit accepts a probe photo, identifies the member and closes today's
// open record.
func (h *Handler) MarkExit(c *gin.Context) {
	h.mark(c, exitProbeName, h.engine.MarkExit)
}

func (h *Handler) mark(c *gin.Context, probeName string,
	op func(context.Context, string, attendance.ProgressFunc) (attendance.Record, error)) {

	photo, ok := readPhoto(c)
	if !ok {
		return
	}

	probePath := filepath.Join(h.dataDir, probeName)
	if err := os.WriteFile(probePath, photo, 0o644); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store probe image"})
		return
	}

	rec, err := op(c.Request.Context(), probePath, func(done, total int) {
		if done == total {
			log.Printf("attendance scan: %d/%d candidates verified", done, total)
		}
	})
	if err != nil {
		switch {
		case errors.Is(err, attendance.ErrNoMembers):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, attendance.ErrNoMatch):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, attendance.ErrAlreadyMarked), errors.Is(err, attendance.ErrNoOpenRecord):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, rec)
}

// ListAttendance returns all attendance records.
func (h *Handler) ListAttendance(c *gin.Context) {
	records, err := h.engine.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []attendance.Record{}
	}
	c.JSON(http.StatusOK, records)
}

// ExportAttendance offers the attendance table as a CSV download.
func (h *Handler) ExportAttendance(c *gin.Context) {
	t, err := h.engine.Export(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	writeCSV(c, "attendance.csv", t)
}

// ---------- Admin ----------

// Reset truncates all three tables and deletes every stored reference photo.
// Irreversible.
func (h *Handler) Reset(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.registry.Reset(ctx); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.engine.Reset(ctx); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

// ---------- helpers ----------

// isValidation reports whether err is a bad-input rejection rather than a
// storage or infrastructure failure.
func isValidation(err error) bool {
	return errors.Is(err, member.ErrMissingFields) ||
		errors.Is(err, member.ErrInvalidMembership) ||
		errors.Is(err, member.ErrNegativeFee)
}

func memberID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
		return 0, false
	}
	return id, true
}

func parseFee(c *gin.Context, raw string) (float64, bool) {
	if raw == "" {
		return 0, true // missing field caught by registry validation
	}
	fee, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid fee"})
		return 0, false
	}
	return fee, true
}

func readPhoto(c *gin.Context) ([]byte, bool) {
	file, _, err := c.Request.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read photo"})
		return nil, false
	}
	return data, true
}

func outcomeResponse(out member.Outcome) gin.H {
	resp := gin.H{"member": out.Member, "mail_sent": out.MailErr == nil}
	if out.MailErr != nil {
		resp["mail_error"] = out.MailErr.Error()
	}
	return resp
}

func writeCSV(c *gin.Context, filename string, t tabular.Table) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(t.Columns)
	for _, row := range t.Rows {
		_ = w.Write(row)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

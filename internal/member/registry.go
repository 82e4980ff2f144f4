package member

import (
	"context"
	"errors"
	"fmt"

	"gymtrack/internal/mailer"
	"gymtrack/internal/photostore"
	"gymtrack/internal/tabular"
)

var (
	// ErrMissingFields rejects a registration with an absent field or photo.
	ErrMissingFields = errors.New("all fields and a captured photo are required")
	// ErrInvalidMembership rejects an unknown membership plan.
	ErrInvalidMembership = errors.New("membership must be Monthly, Quarterly or Yearly")
	// ErrNegativeFee rejects a fee below zero.
	ErrNegativeFee = errors.New("fee must not be negative")
	// ErrNotFound reports an unknown member id.
	ErrNotFound = errors.New("member not found")
)

// Registry performs CRUD over the members table, owning photo storage, ID
// assignment, the deleted-members archive, and the best-effort notification
// emails that accompany every mutation.
type Registry struct {
	store  tabular.Store
	photos *photostore.Store
	mail   mailer.Sender
}

// NewRegistry builds a registry over the given collaborators.
func NewRegistry(store tabular.Store, photos *photostore.Store, mail mailer.Sender) *Registry {
	return &Registry{store: store, photos: photos, mail: mail}
}

// Outcome is the result of a registry mutation. MailErr carries the
// notification failure when the confirmation email could not be sent; the
// mutation itself has already succeeded and is never rolled back for it.
type Outcome struct {
	Member  Member
	MailErr error
}

// RegisterInput carries a registration request.
type RegisterInput struct {
	Name       string
	Email      string
	Mobile     string
	Membership string
	Fee        float64
	Photo      []byte
}

// UpdateInput carries editable member fields.
type UpdateInput struct {
	Name       string
	Email      string
	Mobile     string
	Membership string
	Fee        float64
}

// Register validates the input, assigns the next member ID, stores the
// reference photo, appends the record (whole-table rewrite) and sends the
// registration email. Validation failures mutate nothing.
func (r *Registry) Register(ctx context.Context, in RegisterInput) (Outcome, error) {
	if in.Name == "" || in.Email == "" || in.Mobile == "" || in.Membership == "" || len(in.Photo) == 0 {
		return Outcome{}, ErrMissingFields
	}
	if !ValidMembership(in.Membership) {
		return Outcome{}, ErrInvalidMembership
	}
	if in.Fee < 0 {
		return Outcome{}, ErrNegativeFee
	}

	members, err := r.load(ctx)
	if err != nil {
		return Outcome{}, err
	}
	id, err := r.nextID(ctx, members)
	if err != nil {
		return Outcome{}, err
	}

	imagePath, err := r.photos.Save(id, in.Name, in.Photo)
	if err != nil {
		return Outcome{}, err
	}

	m := Member{
		ID:         id,
		Name:       in.Name,
		Email:      in.Email,
		Mobile:     in.Mobile,
		Membership: in.Membership,
		Fee:        in.Fee,
		ImagePath:  imagePath,
	}
	members = append(members, m)
	if err := r.store.Save(ctx, tabular.Members, tableFromMembers(members)); err != nil {
		return Outcome{}, err
	}

	body := fmt.Sprintf(
		"Dear %s,\n\nWelcome to our Gym!\nYour Member ID: %d\nMembership: %s\nFee: %.2f\n\nStay Fit!\n- Gym Team",
		m.Name, m.ID, m.Membership, m.Fee,
	)
	return Outcome{Member: m, MailErr: r.mail.Send(ctx, m.Email, "Gym Registration Successful", body)}, nil
}

// Update replaces the editable fields of the member with the given id and
// rewrites the whole table. ID and ImagePath are immutable.
func (r *Registry) Update(ctx context.Context, id int, in UpdateInput) (Outcome, error) {
	if in.Name == "" || in.Email == "" || in.Mobile == "" || in.Membership == "" {
		return Outcome{}, ErrMissingFields
	}
	if !ValidMembership(in.Membership) {
		return Outcome{}, ErrInvalidMembership
	}
	if in.Fee < 0 {
		return Outcome{}, ErrNegativeFee
	}

	members, err := r.load(ctx)
	if err != nil {
		return Outcome{}, err
	}

	idx := -1
	for i := range members {
		if members[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Outcome{}, ErrNotFound
	}

	members[idx].Name = in.Name
	members[idx].Email = in.Email
	members[idx].Mobile = in.Mobile
	members[idx].Membership = in.Membership
	members[idx].Fee = in.Fee
	if err := r.store.Save(ctx, tabular.Members, tableFromMembers(members)); err != nil {
		return Outcome{}, err
	}

	m := members[idx]
	body := fmt.Sprintf(
		"Dear %s, your gym details have been updated successfully.\nMembership: %s\nFee: %.2f",
		m.Name, m.Membership, m.Fee,
	)
	return Outcome{Member: m, MailErr: r.mail.Send(ctx, m.Email, "Gym Details Updated", body)}, nil
}

// Delete removes the member with the given id, appends the pre-deletion
// record to the deleted-members archive and sends a deletion notice to the
// member's last known address. The archive is append-only.
func (r *Registry) Delete(ctx context.Context, id int) (Outcome, error) {
	members, err := r.load(ctx)
	if err != nil {
		return Outcome{}, err
	}

	idx := -1
	for i := range members {
		if members[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Outcome{}, ErrNotFound
	}

	removed := members[idx]
	members = append(members[:idx], members[idx+1:]...)
	if err := r.store.Save(ctx, tabular.Members, tableFromMembers(members)); err != nil {
		return Outcome{}, err
	}

	archive, err := r.store.Load(ctx, tabular.DeletedMembers)
	if err != nil {
		return Outcome{}, err
	}
	archive.Append(removed.row())
	if err := r.store.Save(ctx, tabular.DeletedMembers, archive); err != nil {
		return Outcome{}, err
	}

	body := fmt.Sprintf(
		"Dear %s, your gym membership (ID: %d) has been deleted from our records.",
		removed.Name, removed.ID,
	)
	return Outcome{Member: removed, MailErr: r.mail.Send(ctx, removed.Email, "Gym Membership Deleted", body)}, nil
}

// Get returns the member with the given id.
func (r *Registry) Get(ctx context.Context, id int) (Member, error) {
	members, err := r.load(ctx)
	if err != nil {
		return Member{}, err
	}
	for _, m := range members {
		if m.ID == id {
			return m, nil
		}
	}
	return Member{}, ErrNotFound
}

// List returns all current members in table order.
func (r *Registry) List(ctx context.Context) ([]Member, error) {
	return r.load(ctx)
}

// Archived returns the deleted-members archive in table order.
func (r *Registry) Archived(ctx context.Context) ([]Member, error) {
	t, err := r.store.Load(ctx, tabular.DeletedMembers)
	if err != nil {
		return nil, err
	}
	return membersFromTable(t), nil
}

// Export returns the live members table for download, same shape as
// persisted.
func (r *Registry) Export(ctx context.Context) (tabular.Table, error) {
	return r.store.Load(ctx, tabular.Members)
}

// Reset truncates the members and deleted-members tables to their headers
// and deletes every stored reference photo. Irreversible.
func (r *Registry) Reset(ctx context.Context) error {
	if err := r.store.Save(ctx, tabular.Members, tabular.New(tabular.Members)); err != nil {
		return err
	}
	if err := r.store.Save(ctx, tabular.DeletedMembers, tabular.New(tabular.DeletedMembers)); err != nil {
		return err
	}
	return r.photos.RemoveAll()
}

func (r *Registry) load(ctx context.Context) ([]Member, error) {
	t, err := r.store.Load(ctx, tabular.Members)
	if err != nil {
		return nil, err
	}
	return membersFromTable(t), nil
}

// nextID assigns one past the highest ID ever used, scanning both the live
// table and the archive so a deleted member's ID is never handed out again.
func (r *Registry) nextID(ctx context.Context, live []Member) (int, error) {
	max := 0
	for _, m := range live {
		if m.ID > max {
			max = m.ID
		}
	}
	archive, err := r.store.Load(ctx, tabular.DeletedMembers)
	if err != nil {
		return 0, err
	}
	for _, m := range membersFromTable(archive) {
		if m.ID > max {
			max = m.ID
		}
	}
	return max + 1, nil
}

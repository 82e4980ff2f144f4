package faceclient

import "context"

// WorstDistance is the sentinel distance: it seeds "no candidate yet" in
// best-match scans and is what an errored verification degrades to, so an
// errored candidate can never win a strictly-smaller comparison.
const WorstDistance = 1.0

// Match is the outcome of one verification attempt. Err records a verifier
// failure that was degraded to no-match; callers that only care about the
// scan can ignore it, callers that want to distinguish "no match" from
// "verifier errored" can inspect it.
type Match struct {
	Matched  bool
	Distance float64
	Err      error
}

// Matcher degrades verification errors to the worst-case no-match result.
type Matcher struct {
	client *Client
}

// NewMatcher wraps a face client.
func NewMatcher(client *Client) *Matcher {
	return &Matcher{client: client}
}

// TryVerify never fails: any error from the face service maps to
// {Matched:false, Distance:WorstDistance} with the cause attached.
func (m *Matcher) TryVerify(ctx context.Context, probePath, referencePath string) Match {
	res, err := m.client.Verify(ctx, probePath, referencePath)
	if err != nil {
		return Match{Matched: false, Distance: WorstDistance, Err: err}
	}
	return Match{Matched: res.Verified, Distance: res.Distance}
}

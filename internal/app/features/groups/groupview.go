// internal/app/features/groups/groupview.go
package groups

import (
	"net/http"
	"time"

	"github.com/dalemusser/stratachat/internal/app/policy/grouppolicy"
	"github.com/dalemusser/stratachat/internal/app/system/authz"
	"github.com/dalemusser/stratachat/internal/app/system/httpjson"
	"github.com/dalemusser/stratachat/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// groupView is a group as one caller sees it. The tier sets are omitted for
// callers that are neither members nor managers. Overlaps lists users found
// in more than one tier, which only a failed partial write leaves behind.
type groupView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ChannelIDs  []string  `json:"channel_ids"`
	MyTier      string    `json:"my_tier"`
	Admins      []string  `json:"admins,omitempty"`
	Members     []string  `json:"members,omitempty"`
	Interested  []string  `json:"interested,omitempty"`
	Banned      []string  `json:"banned,omitempty"`
	Overlaps    []string  `json:"overlaps,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func viewOf(r *http.Request, g models.Group) groupView {
	_, _, uid, _ := authz.UserCtx(r)
	v := groupView{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		ChannelIDs:  nonNil(g.ChannelIDs),
		MyTier:      string(g.TierOf(uid)),
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
	if grouppolicy.CanSeeMembers(r, g) {
		v.Admins = g.Admins
		v.Members = g.Members
	}
	if grouppolicy.CanManageGroup(r, g) {
		v.Interested = g.Interested
		v.Banned = g.Banned
		v.Overlaps = g.InvariantViolations()
	}
	return v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ServeList handles GET /groups.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := readCtx(r)
	defer cancel()

	groups, err := h.Engine.ListGroups(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]groupView, 0, len(groups))
	for _, g := range groups {
		out = append(out, viewOf(r, g))
	}
	httpjson.OK(w, map[string]any{"groups": out})
}

// ServeGroup handles GET /groups/{id}.
func (h *Handler) ServeGroup(w http.ResponseWriter, r *http.Request) {
	h.writeGroup(w, r, http.StatusOK, chi.URLParam(r, "id"))
}

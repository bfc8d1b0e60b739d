package membership

import (
	"context"

	"github.com/dalemusser/stratachat/internal/app/store"
	"github.com/dalemusser/stratachat/internal/app/system/apperr"
	"github.com/dalemusser/stratachat/internal/domain/models"
	"go.uber.org/zap"
)

var tierFields = []string{store.FieldAdmins, store.FieldMembers, store.FieldInterested, store.FieldBanned}

// setTier leaves userID in exactly the set for t. It is one document update,
// so the tier sets stay disjoint whatever the prior state.
func (e *Engine) setTier(ctx context.Context, groupID, userID string, t models.Tier) error {
	to, _ := store.TierField(t)
	return e.groups.Move(ctx, groupID, userID, to, tierFields...)
}

// userRef is which of a user's two group sets references a group.
type userRef int

const (
	refNone userRef = iota
	refGroup
	refInterested
)

func refOf(u models.User, groupID string) userRef {
	switch {
	case u.InGroup(groupID):
		return refGroup
	case u.InterestedIn(groupID):
		return refInterested
	}
	return refNone
}

func (e *Engine) setUserRef(ctx context.Context, userID, groupID string, ref userRef) error {
	switch ref {
	case refGroup:
		return e.users.Move(ctx, userID, groupID, store.FieldGroupIDs, store.FieldInterestedIDs)
	case refInterested:
		return e.users.Move(ctx, userID, groupID, store.FieldInterestedIDs, store.FieldGroupIDs)
	}
	return e.users.Move(ctx, userID, groupID, "", store.FieldGroupIDs, store.FieldInterestedIDs)
}

func (e *Engine) tierStep(name, groupID, userID string, to, prior models.Tier) step {
	return step{
		name: name,
		do:   func(ctx context.Context) error { return e.setTier(ctx, groupID, userID, to) },
		undo: func(ctx context.Context) error { return e.setTier(ctx, groupID, userID, prior) },
	}
}

func (e *Engine) refStep(name, userID, groupID string, to, prior userRef) step {
	return step{
		name: name,
		do:   func(ctx context.Context) error { return e.setUserRef(ctx, userID, groupID, to) },
		undo: func(ctx context.Context) error { return e.setUserRef(ctx, userID, groupID, prior) },
	}
}

// successorSteps returns the steps that install the root superadmin as an
// admin of g when departing is its sole admin. The root itself has no
// successor, so it can never step down as a sole admin.
func (e *Engine) successorSteps(ctx context.Context, op string, g models.Group, departing string) ([]step, error) {
	if !g.SoleAdmin(departing) {
		return nil, nil
	}
	if departing == e.rootID {
		return nil, apperr.InvalidTransition(op, "the root superadmin is the sole admin of this group")
	}
	if e.rootID == "" {
		return nil, apperr.InvalidTransition(op, "no root superadmin is configured to succeed the sole admin")
	}
	root, err := e.loadUser(ctx, op, e.rootID)
	if err != nil {
		return nil, err
	}
	return []step{
		e.tierStep("install successor admin", g.ID, root.ID, models.TierAdmin, g.TierOf(root.ID)),
		e.refStep("link successor to group", root.ID, g.ID, refGroup, refOf(root, g.ID)),
	}, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Interest                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

// RegisterInterest records userID as interested in groupID. Calling it for
// a user who is already interested, a member or an admin is a no-op.
func (e *Engine) RegisterInterest(ctx context.Context, groupID, userID string) error {
	const op = "membership.register_interest"
	unlock := e.locks.Lock(groupID)
	defer unlock()

	g, err := e.loadGroup(ctx, op, groupID)
	if err != nil {
		return err
	}
	u, err := e.loadUser(ctx, op, userID)
	if err != nil {
		return err
	}

	switch t := g.TierOf(userID); t {
	case models.TierInterested, models.TierMember, models.TierAdmin:
		e.logger.Debug("register interest is a no-op", zap.String("group_id", groupID), zap.String("user_id", userID), zap.String("tier", string(t)))
		return nil
	case models.TierBanned:
		return apperr.InvalidTransition(op, "user is banned from this group")
	}

	err = e.run(ctx, op,
		e.tierStep("add to group interested", groupID, userID, models.TierInterested, models.TierNone),
		e.refStep("add to user interested", userID, groupID, refInterested, refOf(u, groupID)),
	)
	if err == nil {
		e.logDone(op, groupID, userID)
	}
	return err
}

// ApproveInterest moves an interested user into the member set.
func (e *Engine) ApproveInterest(ctx context.Context, groupID, userID string) error {
	unlock := e.locks.Lock(groupID)
	defer unlock()
	return e.approveLocked(ctx, "membership.approve_interest", groupID, userID)
}

func (e *Engine) approveLocked(ctx context.Context, op, groupID, userID string) error {
	g, err := e.loadGroup(ctx, op, groupID)
	if err != nil {
		return err
	}
	u, err := e.loadUser(ctx, op, userID)
	if err != nil {
		return err
	}
	if g.TierOf(userID) != models.TierInterested {
		return apperr.InvalidTransition(op, "user has not registered interest")
	}

	err = e.run(ctx, op,
		e.tierStep("move interested to members", groupID, userID, models.TierMember, models.TierInterested),
		e.refStep("move interested_ids to group_ids", userID, groupID, refGroup, refOf(u, groupID)),
	)
	if err == nil {
		e.logDone(op, groupID, userID)
	}
	return err
}

// DenyInterest drops an interested user's request on both sides.
func (e *Engine) DenyInterest(ctx context.Context, groupID, userID string) error {
	const op = "membership.deny_interest"
	unlock := e.locks.Lock(groupID)
	defer unlock()

	g, err := e.loadGroup(ctx, op, groupID)
	if err != nil {
		return err
	}
	u, err := e.loadUser(ctx, op, userID)
	if err != nil {
		return err
	}
	if g.TierOf(userID) != models.TierInterested {
		return apperr.InvalidTransition(op, "user has not registered interest")
	}

	wasInterested := u.InterestedIn(groupID)
	err = e.run(ctx, op,
		e.tierStep("remove from group interested", groupID, userID, models.TierNone, models.TierInterested),
		step{
			name: "remove from user interested",
			do: func(ctx context.Context) error {
				return e.users.RemoveFromSet(ctx, userID, store.FieldInterestedIDs, groupID)
			},
			undo: func(ctx context.Context) error {
				if !wasInterested {
					return nil
				}
				return e.users.AddToSet(ctx, userID, store.FieldInterestedIDs, groupID)
			},
		},
	)
	if err == nil {
		e.logDone(op, groupID, userID)
	}
	return err
}

/*─────────────────────────────────────────────────────────────────────────────*
| Admin tier                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// PromoteToAdmin moves a member to the admin set. Only the group document
// changes.
func (e *Engine) PromoteToAdmin(ctx context.Context, groupID, userID string) error {
	const op = "membership.promote_admin"
	unlock := e.locks.Lock(groupID)
	defer unlock()

	g, err := e.loadGroup(ctx, op, groupID)
	if err != nil {
		return err
	}
	switch g.TierOf(userID) {
	case models.TierMember:
	case models.TierAdmin:
		return apperr.InvalidTransition(op, "user is already an admin")
	default:
		return apperr.InvalidTransition(op, "user is not a member")
	}

	if err := e.run(ctx, op, e.tierStep("move members to admins", groupID, userID, models.TierAdmin, models.TierMember)); err != nil {
		return err
	}
	e.logDone(op, groupID, userID)
	return nil
}

// DemoteAdmin moves an admin back to the member set. Demoting the sole admin
// installs the root superadmin first.
func (e *Engine) DemoteAdmin(ctx context.Context, groupID, userID string) error {
	const op = "membership.demote_admin"
	unlock := e.locks.Lock(groupID)
	defer unlock()

	g, err := e.loadGroup(ctx, op, groupID)
	if err != nil {
		return err
	}
	if g.TierOf(userID) != models.TierAdmin {
		return apperr.InvalidTransition(op, "user is not an admin")
	}

	steps, err := e.successorSteps(ctx, op, g, userID)
	if err != nil {
		return err
	}
	steps = append(steps, e.tierStep("move admins to members", groupID, userID, models.TierMember, models.TierAdmin))
	if err := e.run(ctx, op, steps...); err != nil {
		return err
	}
	e.logDone(op, groupID, userID)
	return nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Ban                                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// BanUser puts userID in the banned set and drops the group from the user's
// references. Superadmins cannot be banned. Banning an already banned user
// is a no-op.
func (e *Engine) BanUser(ctx context.Context, groupID, userID string) error {
	const op = "membership.ban"
	unlock := e.locks.Lock(groupID)
	defer unlock()

	g, err := e.loadGroup(ctx, op, groupID)
	if err != nil {
		return err
	}
	u, err := e.loadUser(ctx, op, userID)
	if err != nil {
		return err
	}
	if u.Role == models.RoleSuperAdmin {
		return apperr.InvalidTransition(op, "superadmins cannot be banned")
	}
	prior := g.TierOf(userID)
	if prior == models.TierBanned {
		return nil
	}

	steps, err := e.successorSteps(ctx, op, g, userID)
	if err != nil {
		return err
	}
	steps = append(steps,
		e.tierStep("move to banned", groupID, userID, models.TierBanned, prior),
		e.refStep("drop user group references", userID, groupID, refNone, refOf(u, groupID)),
	)
	if err := e.run(ctx, op, steps...); err != nil {
		return err
	}
	e.logDone(op, groupID, userID)
	return nil
}

// UnbanUser returns a banned user to no tier. Prior membership is not
// restored.
func (e *Engine) UnbanUser(ctx context.Context, groupID, userID string) error {
	const op = "membership.unban"
	unlock := e.locks.Lock(groupID)
	defer unlock()

	g, err := e.loadGroup(ctx, op, groupID)
	if err != nil {
		return err
	}
	if g.TierOf(userID) != models.TierBanned {
		return apperr.InvalidTransition(op, "user is not banned")
	}
	if err := e.run(ctx, op, e.tierStep("remove from banned", groupID, userID, models.TierNone, models.TierBanned)); err != nil {
		return err
	}
	e.logDone(op, groupID, userID)
	return nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Direct membership changes                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// AddMember adds userID straight to the member set. An interested user is
// approved; members and admins are left alone; banned users are refused.
func (e *Engine) AddMember(ctx context.Context, groupID, userID string) error {
	const op = "membership.add_member"
	unlock := e.locks.Lock(groupID)
	defer unlock()

	g, err := e.loadGroup(ctx, op, groupID)
	if err != nil {
		return err
	}
	u, err := e.loadUser(ctx, op, userID)
	if err != nil {
		return err
	}

	switch g.TierOf(userID) {
	case models.TierMember, models.TierAdmin:
		return nil
	case models.TierBanned:
		return apperr.InvalidTransition(op, "user is banned from this group")
	case models.TierInterested:
		return e.approveLocked(ctx, op, groupID, userID)
	}

	err = e.run(ctx, op,
		e.tierStep("add to members", groupID, userID, models.TierMember, models.TierNone),
		e.refStep("add to user group_ids", userID, groupID, refGroup, refOf(u, groupID)),
	)
	if err == nil {
		e.logDone(op, groupID, userID)
	}
	return err
}

// RemoveUserFromGroup removes userID from the member and admin sets and the
// group from the user's group_ids, whatever the user's tier. Removing the
// sole admin installs the root superadmin first.
func (e *Engine) RemoveUserFromGroup(ctx context.Context, groupID, userID string) error {
	const op = "membership.remove_user"
	unlock := e.locks.Lock(groupID)
	defer unlock()
	return e.removeLocked(ctx, op, groupID, userID, false)
}

// LeaveGroupWithSuccession is the voluntary leave. If userID is the sole
// admin the root superadmin is installed as admin before userID is
// removed, so the group never drops to zero admins while it has members.
func (e *Engine) LeaveGroupWithSuccession(ctx context.Context, groupID, userID string) error {
	const op = "membership.leave"
	unlock := e.locks.Lock(groupID)
	defer unlock()

	if err := e.removeLocked(ctx, op, groupID, userID, true); err != nil {
		return err
	}
	return e.repairAdminVacancy(ctx, op, groupID)
}

func (e *Engine) removeLocked(ctx context.Context, op, groupID, userID string, requireMember bool) error {
	g, err := e.loadGroup(ctx, op, groupID)
	if err != nil {
		return err
	}
	u, err := e.loadUser(ctx, op, userID)
	if err != nil {
		return err
	}
	prior := g.TierOf(userID)
	if requireMember && prior != models.TierMember && prior != models.TierAdmin {
		return apperr.InvalidTransition(op, "user is not a member of this group")
	}

	steps, err := e.successorSteps(ctx, op, g, userID)
	if err != nil {
		return err
	}

	inGroup := u.InGroup(groupID)
	steps = append(steps,
		step{
			name: "pull from members and admins",
			do: func(ctx context.Context) error {
				return e.groups.Move(ctx, groupID, userID, "", store.FieldMembers, store.FieldAdmins)
			},
			undo: func(ctx context.Context) error {
				if prior != models.TierMember && prior != models.TierAdmin {
					return nil
				}
				return e.setTier(ctx, groupID, userID, prior)
			},
		},
		step{
			name: "pull from user group_ids",
			do: func(ctx context.Context) error {
				return e.users.RemoveFromSet(ctx, userID, store.FieldGroupIDs, groupID)
			},
			undo: func(ctx context.Context) error {
				if !inGroup {
					return nil
				}
				return e.users.AddToSet(ctx, userID, store.FieldGroupIDs, groupID)
			},
		},
	)
	if err := e.run(ctx, op, steps...); err != nil {
		return err
	}
	e.logDone(op, groupID, userID)
	return nil
}

// repairAdminVacancy re-reads the group and installs the root superadmin if
// it has members but no admin. Another process racing on the same group can
// leave it in that state; the next leave repairs it.
func (e *Engine) repairAdminVacancy(ctx context.Context, op, groupID string) error {
	g, err := e.loadGroup(ctx, op, groupID)
	if err != nil {
		return err
	}
	if len(g.Admins) > 0 || len(g.Members) == 0 || e.rootID == "" {
		return nil
	}
	root, err := e.loadUser(ctx, op, e.rootID)
	if err != nil {
		return err
	}
	e.logger.Warn("group has members but no admin; installing root superadmin",
		zap.String("group_id", groupID))
	return e.run(ctx, op,
		e.tierStep("install successor admin", groupID, root.ID, models.TierAdmin, g.TierOf(root.ID)),
		e.refStep("link successor to group", root.ID, groupID, refGroup, refOf(root, groupID)),
	)
}

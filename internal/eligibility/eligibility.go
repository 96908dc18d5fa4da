// Package eligibility derives how much a team may bid from its roster size
// and remaining budget.
//
// A team below the minimum roster size must keep enough points in reserve to
// fill every remaining mandatory slot at the minimum bid, counting the slot
// the current bid would fill. Once the minimum is reached the whole budget
// is biddable.
package eligibility

import (
	"fmt"
	"math"

	"github.com/Madhuiit/dcl/internal/model"
)

// Rules holds the auction's roster and bidding parameters.
type Rules struct {
	InitialPoints   int64
	MinimumTeamSize int
	MinimumBid      int64

	// EnforceLimitOnAdjust makes transfers and amount edits respect the
	// same ceiling as a fresh sale. Off by default: administrators use those
	// operations to correct the record, not to bid.
	EnforceLimitOnAdjust bool
}

// NewRules creates rules with negative inputs clamped to zero.
func NewRules(initialPoints int64, minimumTeamSize int, minimumBid int64) Rules {
	if initialPoints < 0 {
		initialPoints = 0
	}
	if minimumTeamSize < 0 {
		minimumTeamSize = 0
	}
	if minimumBid < 0 {
		minimumBid = 0
	}
	return Rules{
		InitialPoints:   initialPoints,
		MinimumTeamSize: minimumTeamSize,
		MinimumBid:      minimumBid,
	}
}

// Reserved returns the points a team holding playersOwned players must keep
// back after its next purchase.
func (r Rules) Reserved(playersOwned int) int64 {
	slots := r.MinimumTeamSize - playersOwned - 1
	if slots <= 0 {
		return 0
	}
	return int64(slots) * r.MinimumBid
}

// MaxBid is the largest legal bid for the team in its current state.
// It is derived on every call and never stored.
func (r Rules) MaxBid(team *model.Team) int64 {
	return r.maxBid(team.Points, len(team.Players))
}

func (r Rules) maxBid(points int64, playersOwned int) int64 {
	available := points - r.Reserved(playersOwned)
	if available < 0 {
		return 0
	}
	return available
}

// CheckBid validates a sale amount against the team's ceiling. Zero is
// always accepted below the ceiling; any other amount must reach MinimumBid.
func (r Rules) CheckBid(team *model.Team, points int64) error {
	if points < 0 {
		return fmt.Errorf("%w: bid of %d is negative", model.ErrInvalidAmount, points)
	}
	if max := r.MaxBid(team); points > max {
		return fmt.Errorf("%w: bid of %d exceeds max bid of %d for %s",
			model.ErrBidExceedsLimit, points, max, team.Name)
	}
	if points > 0 && points < r.MinimumBid {
		return fmt.Errorf("%w: bid must be at least %d (or 0)", model.ErrBidBelowMinimum, r.MinimumBid)
	}
	return nil
}

// CheckTransfer validates the new amount for a sale moving onto dest.
// Without EnforceLimitOnAdjust only the sign and the budget range are checked.
func (r Rules) CheckTransfer(dest *model.Team, newPoints int64) error {
	if newPoints < 0 {
		return fmt.Errorf("%w: amount %d is negative", model.ErrInvalidAmount, newPoints)
	}
	if err := r.checkDebit(dest, dest.Points, newPoints); err != nil {
		return err
	}
	if !r.EnforceLimitOnAdjust {
		return nil
	}
	return r.CheckBid(dest, newPoints)
}

// CheckEdit validates a new amount for a sale the team already holds. The
// ceiling is computed as if the existing sale were refunded and removed.
func (r Rules) CheckEdit(team *model.Team, oldPoints, newPoints int64) error {
	if newPoints < 0 {
		return fmt.Errorf("%w: amount %d is negative", model.ErrInvalidAmount, newPoints)
	}
	if err := r.checkDebit(team, team.Points+oldPoints, newPoints); err != nil {
		return err
	}
	if !r.EnforceLimitOnAdjust {
		return nil
	}
	if max := r.maxBid(team.Points+oldPoints, len(team.Players)-1); newPoints > max {
		return fmt.Errorf("%w: amount %d exceeds max bid of %d for %s",
			model.ErrBidExceedsLimit, newPoints, max, team.Name)
	}
	if newPoints > 0 && newPoints < r.MinimumBid {
		return fmt.Errorf("%w: amount must be at least %d (or 0)", model.ErrBidBelowMinimum, r.MinimumBid)
	}
	return nil
}

// checkDebit rejects a debit that would take the team's budget below
// InitialPoints-MaxInt64, where the amount spent no longer fits an int64.
func (r Rules) checkDebit(team *model.Team, points, debit int64) error {
	if floor := r.InitialPoints - math.MaxInt64; points < floor+debit {
		return fmt.Errorf("%w: amount %d is out of range for %s", model.ErrInvalidAmount, debit, team.Name)
	}
	return nil
}

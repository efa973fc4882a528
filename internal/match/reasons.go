// internal/match/reasons.go
package match

// Reason labels why a rally ended. The set below mirrors the buttons on the
// scouting panel; unknown reasons are accepted and counted as plain points.
type Reason string

const (
	ReasonAttack         Reason = "attack"
	ReasonBlock          Reason = "block"
	ReasonAce            Reason = "ace"
	ReasonTip            Reason = "tip"
	ReasonFreeball       Reason = "free_ball"
	ReasonServeError     Reason = "serve_error"
	ReasonAttackError    Reason = "attack_error"
	ReasonReceptionError Reason = "reception_error"
	ReasonNetTouch       Reason = "net_touch"
	ReasonDoubleTouch    Reason = "double_touch"
	ReasonBallHandling   Reason = "ball_handling_error"
	ReasonOutOfRotation  Reason = "out_of_rotation"
	ReasonOpponentError  Reason = "opponent_error"
	ReasonOther          Reason = "other"
)

// Classification says how a rally-ending reason counts in the statistics.
// Every reason is an explicit table entry rather than a substring match on
// the reason text, so adding a reason means adding a row here.
type Classification struct {
	// Earned is true when the scoring side won the point through its own
	// play rather than an opponent mistake.
	Earned bool
	// ConcederError is true when the point is attributed as an error to the
	// side that lost the rally.
	ConcederError bool
}

var reasonTable = map[Reason]Classification{
	ReasonAttack:         {Earned: true},
	ReasonBlock:          {Earned: true},
	ReasonAce:            {Earned: true},
	ReasonTip:            {Earned: true},
	ReasonFreeball:       {Earned: true},
	ReasonServeError:     {ConcederError: true},
	ReasonAttackError:    {ConcederError: true},
	ReasonReceptionError: {ConcederError: true},
	ReasonNetTouch:       {ConcederError: true},
	ReasonDoubleTouch:    {ConcederError: true},
	ReasonBallHandling:   {ConcederError: true},
	ReasonOutOfRotation:  {ConcederError: true},
	ReasonOpponentError:  {ConcederError: true},
	ReasonOther:          {},
}

// Classify returns the table entry for a reason. Reasons missing from the
// table count as a plain point with no error attribution.
func Classify(r Reason) Classification {
	c, ok := reasonTable[r]
	if !ok {
		return Classification{}
	}
	return c
}

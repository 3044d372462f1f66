package engine

// AllowedIn lists the phases each command may be issued from.
var AllowedIn = map[CommandType][]Phase{
	CmdOpen:       {PhaseIdle},
	CmdJoin:       {PhaseBetSelecting},
	CmdClaim:      {PhaseNumberSelecting},
	CmdAccept:     {PhaseCardPreview},
	CmdCancel:     {PhaseCardPreview},
	CmdCall:       {PhasePlaying},
	CmdBingo:      {PhasePlaying},
	CmdToggle:     {PhasePlaying},
	CmdPollResult: {PhasePlaying},
	CmdContinue:   {PhasePostWin},
	CmdBack:       {PhasePostWin},
	CmdClose:      {PhaseBetSelecting, PhasePostWin},
}

// Transitions is the state graph. Kicks may leave any game-holding phase for
// bet selection.
var Transitions = map[Phase][]Phase{
	PhaseIdle:            {PhaseBetSelecting},
	PhaseBetSelecting:    {PhaseNumberSelecting, PhaseIdle},
	PhaseNumberSelecting: {PhaseCardPreview, PhaseBetSelecting},
	PhaseCardPreview:     {PhasePlaying, PhaseNumberSelecting, PhaseBetSelecting},
	PhasePlaying:         {PhaseFinished, PhaseBetSelecting},
	PhaseFinished:        {PhasePostWin, PhaseBetSelecting},
	PhasePostWin:         {PhaseNumberSelecting, PhaseBetSelecting, PhaseIdle},
}

// Phases whose session carries an active game id.
var gamePhases = map[Phase]bool{
	PhaseNumberSelecting: true,
	PhaseCardPreview:     true,
	PhasePlaying:         true,
	PhaseFinished:        true,
}

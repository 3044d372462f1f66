package engine

import (
	"errors"
	"fmt"
	"slices"

	"github.com/DoyleJ11/bingo-miniapp/internal/cardview"
	"github.com/DoyleJ11/bingo-miniapp/internal/gateway"
	"github.com/DoyleJ11/bingo-miniapp/internal/selector"
)

var ErrWrongPhase = errors.New("action not allowed in current phase")
var ErrUnsupportedCommand = errors.New("unsupported command")
var ErrInvalidBet = errors.New("invalid bet amount")
var ErrBusy = errors.New("another request is in flight")
var ErrStalePoll = errors.New("poll result for another game")
var ErrIllegalTransition = errors.New("illegal phase transition")

type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseBetSelecting    Phase = "bet_selecting"
	PhaseNumberSelecting Phase = "number_selecting"
	PhaseCardPreview     Phase = "card_preview"
	PhasePlaying         Phase = "playing"
	PhaseFinished        Phase = "finished"
	PhasePostWin         Phase = "post_win"
)

type NoticeKind string

const (
	NoticeInfo  NoticeKind = "info"
	NoticeError NoticeKind = "error"
	NoticeWin   NoticeKind = "win"
	NoticeKick  NoticeKind = "kick"
)

type Notice struct {
	Kind NoticeKind
	Text string
}

// Outcome is what the session remembers about the last finished game.
type Outcome struct {
	GameID   string
	WinnerID string
	Prize    int64
	Won      bool
}

type Rules struct {
	BetOptions []int64
}

type Session struct {
	Phase    Phase
	UserID   gateway.UserID
	GameID   string
	Bet      int64
	Selector selector.Episode
	Board    cardview.Board
	Status   *gateway.GameStatus
	Notice   Notice
	Last     *Outcome
	Rules    Rules
}

type CommandType string

const (
	CmdOpen       CommandType = "open"
	CmdJoin       CommandType = "join"
	CmdClaim      CommandType = "claim"
	CmdAccept     CommandType = "accept"
	CmdCancel     CommandType = "cancel"
	CmdCall       CommandType = "call"
	CmdBingo      CommandType = "bingo"
	CmdToggle     CommandType = "toggle"
	CmdContinue   CommandType = "continue"
	CmdBack       CommandType = "back"
	CmdClose      CommandType = "close"
	CmdPollResult CommandType = "poll_result"
)

/*
	CmdOpen      -> PhaseChanged(bet_selecting)
	CmdJoin      -> PhaseChanged(number_selecting)              | Notice
	CmdClaim     -> PhaseChanged(card_preview)                  | CandidateDisabled, Notice
	CmdAccept    -> PhaseChanged(playing) -> PollStart          | Notice
	CmdCancel    -> PhaseChanged(number_selecting)
	CmdCall      -> CardReconciled -> Notice
	CmdBingo     -> Notice | Notice -> RefreshStatus | PollStop -> PhaseChanged(bet_selecting)
	CmdPollResult-> CardReconciled [-> PhaseChanged(finished) -> PollStop -> PhaseChanged(post_win)]
	CmdContinue  -> PhaseChanged(number_selecting)              | Notice
	CmdBack      -> PhaseChanged(bet_selecting)
	CmdClose     -> PhaseChanged(idle)
*/

// Command is a player action or poll tick. Result carries the completed
// remote outcome for commands that needed one.
type Command struct {
	Type      CommandType
	BetAmount int64
	Number    int
	Cell      int
	Result    Result
}

type Result struct {
	Err     error
	GameID  string
	Bet     int64
	Card    []int
	Status  *gateway.GameStatus
	Call    *gateway.CallResult
	Verdict *gateway.Verdict
}

type EffectType string

const (
	EffPhaseChanged      EffectType = "PhaseChanged"
	EffPollStart         EffectType = "PollStart"
	EffPollStop          EffectType = "PollStop"
	EffRefreshStatus     EffectType = "RefreshStatus"
	EffCardReconciled    EffectType = "CardReconciled"
	EffCandidateDisabled EffectType = "CandidateDisabled"
	EffNotice            EffectType = "Notice"
)

type Effect struct {
	Type   EffectType
	Phase  Phase
	GameID string
	Number int
	Notice Notice
}

type handler func(s Session, cmd Command) ([]Effect, Session, error)

var handlers = map[CommandType]handler{
	CmdOpen:       applyOpen,
	CmdJoin:       applyJoin,
	CmdContinue:   applyJoin,
	CmdClaim:      applyClaim,
	CmdAccept:     applyAccept,
	CmdCancel:     applyCancel,
	CmdCall:       applyCall,
	CmdBingo:      applyBingo,
	CmdToggle:     applyToggle,
	CmdBack:       applyBack,
	CmdClose:      applyClose,
	CmdPollResult: applyPollResult,
}

// Guard checks that cmd may be issued in the current phase.
func Guard(s Session, t CommandType) error {
	phases, ok := AllowedIn[t]
	if !ok {
		return ErrUnsupportedCommand
	}
	if !slices.Contains(phases, s.Phase) {
		return fmt.Errorf("%w: %s during %s", ErrWrongPhase, t, s.Phase)
	}
	return nil
}

// Begin validates a remote command before its request goes out and records
// any pending view state.
func Begin(s Session, cmd Command) (Session, error) {
	if err := Guard(s, cmd.Type); err != nil {
		return s, err
	}
	switch cmd.Type {
	case CmdJoin:
		if !slices.Contains(s.Rules.BetOptions, cmd.BetAmount) {
			return s, fmt.Errorf("%w: %d", ErrInvalidBet, cmd.BetAmount)
		}
	case CmdContinue:
		if s.Bet <= 0 {
			return s, ErrInvalidBet
		}
	case CmdClaim:
		next, err := s.Selector.Begin(cmd.Number)
		if err != nil {
			return s, err
		}
		s.Selector = next
	}
	s.Notice = Notice{}
	return s, nil
}

func Apply(s Session, cmd Command) ([]Effect, Session, error) {
	if err := Guard(s, cmd.Type); err != nil {
		if !outlived(s, cmd) {
			return nil, s, err
		}
		effects, next := applyOutlived(s, cmd)
		return effects, next, nil
	}
	effects, next, err := handlers[cmd.Type](s, cmd)
	if err != nil {
		return nil, s, err
	}

	from := s.Phase
	for _, to := range PhaseTrail(effects) {
		if !CanTransition(from, to) {
			return nil, s, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
		}
		from = to
	}
	return effects, next, nil
}

func applyOpen(s Session, _ Command) ([]Effect, Session, error) {
	return []Effect{moveTo(&s, PhaseBetSelecting)}, s, nil
}

// applyJoin serves both join (from bet selection) and continue (from post-win
// with the same bet).
func applyJoin(s Session, cmd Command) ([]Effect, Session, error) {
	if err := cmd.Result.Err; err != nil {
		return []Effect{notice(&s, NoticeError, gateway.Reason(err))}, s, nil
	}
	if cmd.Result.GameID == "" {
		return []Effect{notice(&s, NoticeError, "no game id returned")}, s, nil
	}

	bet := cmd.Result.Bet
	if bet == 0 {
		bet = cmd.BetAmount
	}
	if bet == 0 {
		bet = s.Bet
	}

	resetGame(&s)
	s.GameID = cmd.Result.GameID
	s.Bet = bet
	s.Last = nil
	return []Effect{moveTo(&s, PhaseNumberSelecting)}, s, nil
}

func applyClaim(s Session, cmd Command) ([]Effect, Session, error) {
	if err := cmd.Result.Err; err != nil {
		if gateway.IsRejection(err) {
			n := s.Selector.Candidate
			s.Selector = s.Selector.Rejected()
			return []Effect{
				{Type: EffCandidateDisabled, Number: n},
				notice(&s, NoticeError, gateway.Reason(err)),
			}, s, nil
		}
		s.Selector = s.Selector.Failed()
		return []Effect{notice(&s, NoticeError, gateway.Reason(err))}, s, nil
	}

	card, err := cardview.NewCard(cmd.Result.Card)
	if err != nil {
		s.Selector = s.Selector.Failed()
		return []Effect{notice(&s, NoticeError, err.Error())}, s, nil
	}
	if !card.Assigned() {
		s.Selector = s.Selector.Failed()
		return []Effect{notice(&s, NoticeError, "card is not fully assigned")}, s, nil
	}

	s.Selector = s.Selector.Claimed(card)
	s.Board = cardview.NewBoard(card)
	return []Effect{moveTo(&s, PhaseCardPreview)}, s, nil
}

func applyAccept(s Session, cmd Command) ([]Effect, Session, error) {
	if err := cmd.Result.Err; err != nil {
		return []Effect{notice(&s, NoticeError, gateway.Reason(err))}, s, nil
	}

	// The committed card normally echoes the preview; keep the preview when
	// the service omits it.
	card := s.Selector.Preview
	if committed, err := cardview.NewCard(cmd.Result.Card); err == nil && committed.Assigned() {
		card = committed
	}

	s.Board = cardview.NewBoard(card)
	s.Selector = selector.NewEpisode()
	return []Effect{
		moveTo(&s, PhasePlaying),
		{Type: EffPollStart, GameID: s.GameID},
	}, s, nil
}

func applyCancel(s Session, _ Command) ([]Effect, Session, error) {
	next, err := s.Selector.Cancel()
	if err != nil {
		return nil, s, err
	}
	s.Selector = next
	s.Board = cardview.Board{}
	return []Effect{moveTo(&s, PhaseNumberSelecting)}, s, nil
}

func applyCall(s Session, cmd Command) ([]Effect, Session, error) {
	if err := cmd.Result.Err; err != nil {
		return []Effect{notice(&s, NoticeInfo, gateway.Reason(err))}, s, nil
	}
	call := cmd.Result.Call
	if call == nil {
		return []Effect{notice(&s, NoticeError, "empty call result")}, s, nil
	}

	s.Board = s.Board.Reconcile(call.CalledNumbers)
	return []Effect{
		{Type: EffCardReconciled},
		notice(&s, NoticeInfo, fmt.Sprintf("Number called: %d (%d remaining)", call.Number, call.Remaining)),
	}, s, nil
}

func applyBingo(s Session, cmd Command) ([]Effect, Session, error) {
	if err := cmd.Result.Err; err != nil {
		return []Effect{notice(&s, NoticeError, gateway.Reason(err))}, s, nil
	}
	v := cmd.Result.Verdict
	if v == nil {
		return []Effect{notice(&s, NoticeError, "empty bingo verdict")}, s, nil
	}

	switch {
	case v.Kicked:
		return kick(&s, v.Message), s, nil
	case v.Won:
		return []Effect{
			notice(&s, NoticeWin, v.Message),
			{Type: EffRefreshStatus, GameID: s.GameID},
		}, s, nil
	default:
		return []Effect{notice(&s, NoticeInfo, v.Message)}, s, nil
	}
}

func applyToggle(s Session, cmd Command) ([]Effect, Session, error) {
	board, err := s.Board.Toggle(cmd.Cell)
	if err != nil {
		return nil, s, err
	}
	s.Board = board
	return nil, s, nil
}

func applyBack(s Session, _ Command) ([]Effect, Session, error) {
	resetGame(&s)
	s.Bet = 0
	s.Last = nil
	return []Effect{moveTo(&s, PhaseBetSelecting)}, s, nil
}

func applyClose(s Session, _ Command) ([]Effect, Session, error) {
	resetGame(&s)
	s.Bet = 0
	s.Last = nil
	return []Effect{moveTo(&s, PhaseIdle)}, s, nil
}

func applyPollResult(s Session, cmd Command) ([]Effect, Session, error) {
	if cmd.Result.GameID != s.GameID {
		return nil, s, ErrStalePoll
	}
	if err := cmd.Result.Err; err != nil {
		return remark(&s, NoticeError, gateway.Reason(err)), s, nil
	}
	st := cmd.Result.Status
	if st == nil {
		return nil, s, nil
	}
	if st.Status == gateway.StateNotFound {
		return remark(&s, NoticeError, "Game not found"), s, nil
	}

	// Each poll replaces the previous snapshot outright.
	s.Status = st
	s.Board = s.Board.Reconcile(st.CalledNumbers)
	effects := []Effect{{Type: EffCardReconciled}}

	if st.Finished() {
		effects = append(effects, finish(&s, *st)...)
	}
	return effects, s, nil
}

// finish walks Playing -> Finished -> PostWin. The session never rests in
// Finished.
func finish(s *Session, st gateway.GameStatus) []Effect {
	winner := string(st.WinnerID)
	s.Last = &Outcome{
		GameID:   s.GameID,
		WinnerID: winner,
		Prize:    int64(st.PrizeAmount),
		Won:      winner == s.UserID.String(),
	}

	effects := []Effect{
		moveTo(s, PhaseFinished),
		{Type: EffPollStop, GameID: s.Last.GameID},
	}
	s.GameID = ""
	effects = append(effects, moveTo(s, PhasePostWin))

	text := fmt.Sprintf("Game over: player %s won %d", winner, s.Last.Prize)
	if s.Last.Won {
		text = fmt.Sprintf("You won %d!", s.Last.Prize)
	}
	return append(effects, notice(s, NoticeWin, text))
}

// kick forces the session back to bet selection from any active phase.
func kick(s *Session, message string) []Effect {
	gameID := s.GameID
	resetGame(s)
	effects := []Effect{
		{Type: EffPollStop, GameID: gameID},
		moveTo(s, PhaseBetSelecting),
	}
	if message == "" {
		message = "Removed from game"
	}
	return append(effects, notice(s, NoticeKick, message))
}

// outlived reports whether cmd is the answer to a Playing request that came
// back after a poll had already ended the game for this session.
func outlived(s Session, cmd Command) bool {
	if cmd.Type != CmdBingo && cmd.Type != CmdCall {
		return false
	}
	r := cmd.Result
	return s.Phase != PhasePlaying && (r.Err != nil || r.Verdict != nil || r.Call != nil)
}

// applyOutlived keeps only the answer's text. The session has already moved
// on, so nothing is reconciled and no phase changes.
func applyOutlived(s Session, cmd Command) ([]Effect, Session) {
	r := cmd.Result
	switch {
	case r.Err != nil:
		return remark(&s, NoticeError, gateway.Reason(r.Err)), s
	case r.Verdict != nil && r.Verdict.Won && r.Verdict.Message != "":
		return []Effect{notice(&s, NoticeWin, r.Verdict.Message)}, s
	case r.Verdict != nil:
		return remark(&s, NoticeInfo, r.Verdict.Message), s
	default:
		return remark(&s, NoticeInfo, fmt.Sprintf("Number called: %d", r.Call.Number)), s
	}
}

func moveTo(s *Session, to Phase) Effect {
	s.Phase = to
	s.Notice = Notice{}
	if !HoldsGame(to) || to == PhaseFinished {
		s.GameID = ""
	}
	return Effect{Type: EffPhaseChanged, Phase: to}
}

func notice(s *Session, kind NoticeKind, text string) Effect {
	s.Notice = Notice{Kind: kind, Text: text}
	return Effect{Type: EffNotice, Notice: s.Notice}
}

// remark sets a notice unless a win or kick notice is still on screen.
func remark(s *Session, kind NoticeKind, text string) []Effect {
	if text == "" || s.Notice.Kind == NoticeWin || s.Notice.Kind == NoticeKick {
		return nil
	}
	return []Effect{notice(s, kind, text)}
}

func resetGame(s *Session) {
	s.GameID = ""
	s.Selector = selector.NewEpisode()
	s.Board = cardview.Board{}
	s.Status = nil
}

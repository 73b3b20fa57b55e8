package types

// Server -> Client message types.
const (
	TypeSnapshot       = "snapshot"
	TypeJoined         = "joined"
	TypeError          = "error"
	TypeSeatJoined     = "seat_joined"
	TypeSeatLeft       = "seat_left"
	TypeSeatAutoplayed = "seat_autoplayed"
	TypeGameStarted    = "game_started"
	TypeRoundOpened    = "round_opened"
	TypeBidLocked      = "bid_locked"
	TypeBidsRevealed   = "bids_revealed"
	TypeCardsAwarded   = "cards_awarded"
	TypeCardsCarried   = "cards_carried"
	TypeGameFinished   = "game_finished"
	TypeSessionHalted  = "session_halted"
)

type ServerMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}

func ErrorMessage(err error) ServerMessage {
	return ServerMessage{Type: TypeError, Error: err.Error()}
}

type Card struct {
	Kind  string `json:"kind"` // "stock" | "vulture"
	Value int    `json:"value"`
	Name  string `json:"name"`
}

type Seat struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	IsAI     bool   `json:"is_ai"`
	Level    int    `json:"level,omitempty"`
	Hand     []int  `json:"hand"`
	Acquired []Card `json:"acquired"`
	Score    int    `json:"score"`
}

type Standing struct {
	Position int    `json:"position"`
	SeatID   int    `json:"seat_id"`
	Name     string `json:"name"`
	IsAI     bool   `json:"is_ai"`
	Level    int    `json:"level,omitempty"`
	Score    int    `json:"score"`
}

// SessionSnapshot is sent once on connect and on request over HTTP.
type SessionSnapshot struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	Phase       string     `json:"phase"`
	Round       int        `json:"round"`
	TotalRounds int        `json:"total_rounds"`
	Stock       *Card      `json:"stock,omitempty"`
	CarriedOver []Card     `json:"carried_over"`
	Seats       []Seat     `json:"seats"`
	Host        int        `json:"host_id"` // -1 when no human is seated
	Locked      []int      `json:"locked"`
	Ranking     []Standing `json:"ranking,omitempty"`
	Halted      string     `json:"halted,omitempty"`
}

type JoinedPayload struct {
	SeatID int `json:"seat_id"`
}

type SeatLeftPayload struct {
	SeatID int `json:"seat_id"`
}

type SeatAutoplayedPayload struct {
	SeatID int `json:"seat_id"`
	Level  int `json:"level"`
}

type GameStartedPayload struct {
	Seats       []Seat `json:"seats"`
	Hand        []int  `json:"hand"`
	TotalRounds int    `json:"total_rounds"`
}

type RoundOpenedPayload struct {
	Round            int  `json:"round"`
	Stock            Card `json:"stock"`
	CarriedOverCount int  `json:"carried_over_count"`
}

type BidLockedPayload struct {
	Round  int `json:"round"`
	SeatID int `json:"seat_id"`
}

type BidsRevealedPayload struct {
	Round       int         `json:"round"`
	Bids        map[int]int `json:"bids"`
	Batted      []int       `json:"batted"`
	WinnerID    int         `json:"winner_id"` // -1 when the cards carry over
	CarriedOver bool        `json:"carried_over"`
}

type CardsAwardedPayload struct {
	SeatID int         `json:"seat_id"`
	Cards  []Card      `json:"cards"`
	Scores map[int]int `json:"scores"`
}

type CardsCarriedPayload struct {
	Cards []Card `json:"cards"`
}

type GameFinishedPayload struct {
	Ranking []Standing `json:"ranking"`
}

type SessionHaltedPayload struct {
	Reason string `json:"reason"`
}

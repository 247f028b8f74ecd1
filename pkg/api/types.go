package api

import "time"

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one turn of an intake conversation. Content is the display text
// only; any trailing machine payload has already been split off.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Seq       int64     `json:"seq"`
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Session summarises a stored conversation.
type Session struct {
	ID        string    `json:"id"`
	Messages  int       `json:"messages"`
	FirstAt   time.Time `json:"first_at"`
	LastAt    time.Time `json:"last_at"`
	Preview   string    `json:"preview"`
	Confirmed bool      `json:"confirmed"`
}

// ConsultationRecord is the structured log the assistant appends to a turn.
type ConsultationRecord struct {
	ID            string    `json:"id,omitempty"`
	SessionID     string    `json:"session_id,omitempty"`
	PatientID     string    `json:"patient_id"`
	Name          string    `json:"name"`
	Age           string    `json:"age"`
	Sex           string    `json:"sex"`
	Phone         string    `json:"phone"`
	Address       string    `json:"address"`
	Symptoms      string    `json:"symptoms"`
	Vitals        string    `json:"vitals"`
	Diagnosis     string    `json:"diagnosis"`
	Prescription  string    `json:"prescription"`
	AdviceMM      string    `json:"advice_mm"`
	PaymentStatus string    `json:"payment_status"`
	Timestamp     time.Time `json:"timestamp"`
}

const (
	PaymentNotApplicable = "Not Applicable"
	PaymentPending       = "Pending"
	PaymentPaid          = "Paid"
)

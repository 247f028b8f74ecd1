// Package turn separates an assistant turn into the text shown to the
// patient and the structured consultation log the model appends to it.
package turn

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"

	"github.com/mithrel/medchat/internal/render"
	"github.com/mithrel/medchat/pkg/api"
)

// ErrBadPayload is returned when a turn's JSON log cannot be decoded even
// after repair.
var ErrBadPayload = errors.New("bad consultation payload")

var payloadRe = regexp.MustCompile("```json\\s*((?s:.*?))\\s*```")

// Turn is a raw assistant turn split into its parts.
type Turn struct {
	Text       string
	Payload    string
	HasPayload bool
}

// Split removes the first fenced json block from raw and returns the
// remaining display text, trimmed, along with the block contents.
func Split(raw string) Turn {
	loc := payloadRe.FindStringSubmatchIndex(raw)
	if loc == nil {
		return Turn{Text: strings.TrimSpace(raw)}
	}
	return Turn{
		Text:       strings.TrimSpace(raw[:loc[0]] + raw[loc[1]:]),
		Payload:    raw[loc[2]:loc[3]],
		HasPayload: true,
	}
}

// ParseRecord decodes a consultation log. Model output is frequently not
// quite JSON (trailing commas, single quotes, truncation), so a failed decode
// is retried once on the repaired text.
func ParseRecord(payload string) (api.ConsultationRecord, error) {
	var rec api.ConsultationRecord
	if strings.TrimSpace(payload) == "" {
		return rec, fmt.Errorf("%w: empty", ErrBadPayload)
	}
	err := decodeRecord(payload, &rec)
	if err == nil {
		return rec, nil
	}
	fixed, rerr := jsonrepair.JSONRepair(payload)
	if rerr != nil {
		return api.ConsultationRecord{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	rec = api.ConsultationRecord{}
	if err := decodeRecord(fixed, &rec); err != nil {
		return api.ConsultationRecord{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return rec, nil
}

// decodeRecord accepts null for string fields and tolerates a missing or
// non-RFC3339 timestamp; the model fills the log loosely.
func decodeRecord(s string, rec *api.ConsultationRecord) error {
	var raw map[string]any
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return err
	}
	str := func(k string) string {
		switch v := raw[k].(type) {
		case string:
			return strings.TrimSpace(v)
		case float64, bool:
			return fmt.Sprint(v)
		default:
			return ""
		}
	}
	*rec = api.ConsultationRecord{
		PatientID:     str("patient_id"),
		Name:          str("name"),
		Age:           str("age"),
		Sex:           str("sex"),
		Phone:         str("phone"),
		Address:       str("address"),
		Symptoms:      str("symptoms"),
		Vitals:        str("vitals"),
		Diagnosis:     str("diagnosis"),
		Prescription:  str("prescription"),
		AdviceMM:      str("advice_mm"),
		PaymentStatus: str("payment_status"),
	}
	if rec.PatientID == "" {
		rec.PatientID = str("patientId")
	}
	if ts := str("timestamp"); ts != "" {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			rec.Timestamp = t.UTC()
		}
	}
	return nil
}

// Result is a fully processed assistant turn.
type Result struct {
	Text   string
	Nodes  []api.Node
	Record *api.ConsultationRecord
	// RecordErr is set when a payload was present but unusable. Rendering
	// still succeeds.
	RecordErr error
}

// Process splits raw, renders the display text and decodes the payload when
// present. Records without a timestamp are stamped with now.
func Process(raw string, now time.Time) Result {
	t := Split(raw)
	res := Result{Text: t.Text, Nodes: render.Render(t.Text)}
	if !t.HasPayload {
		return res
	}
	rec, err := ParseRecord(t.Payload)
	if err != nil {
		res.RecordErr = err
		return res
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = now.UTC()
	}
	res.Record = &rec
	return res
}

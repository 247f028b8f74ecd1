package format

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/mithrel/medchat/pkg/api"
)

// TSV columns: id, messages, last_at, confirmed, preview
const sessionHeader = "id\tmessages\tlast_at\tconfirmed\tpreview\n"

// TSV columns: id, session, name, patient_id, diagnosis, payment, timestamp
const recordHeader = "id\tsession\tname\tpatient_id\tdiagnosis\tpayment\ttimestamp\n"

func WritePlainSessions(w io.Writer, sessions []api.Session, headers bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if headers {
		_, _ = io.WriteString(tw, sessionHeader)
	}
	for _, s := range sessions {
		confirmed := "no"
		if s.Confirmed {
			confirmed = "yes"
		}
		line := fmt.Sprintf("%s\t%d\t%s\t%s\t%s\n",
			esc(s.ID), s.Messages, s.LastAt.Local().Format(time.RFC3339), confirmed, esc(s.Preview))
		_, _ = io.WriteString(tw, line)
	}
	return tw.Flush()
}

func WritePlainRecords(w io.Writer, recs []api.ConsultationRecord, headers bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if headers {
		_, _ = io.WriteString(tw, recordHeader)
	}
	for _, r := range recs {
		ts := ""
		if !r.Timestamp.IsZero() {
			ts = r.Timestamp.Local().Format(time.RFC3339)
		}
		line := fmt.Sprintf("%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			esc(r.ID), esc(r.SessionID), esc(r.Name), esc(r.PatientID), esc(r.Diagnosis), esc(r.PaymentStatus), ts)
		_, _ = io.WriteString(tw, line)
	}
	return tw.Flush()
}

// WriteRecordDetail prints one record as aligned label/value pairs.
func WriteRecordDetail(w io.Writer, r api.ConsultationRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"ID", r.ID},
		{"Session", r.SessionID},
		{"Patient ID", r.PatientID},
		{"Name", r.Name},
		{"Age", r.Age},
		{"Sex", r.Sex},
		{"Phone", r.Phone},
		{"Address", r.Address},
		{"Symptoms", r.Symptoms},
		{"Vitals", r.Vitals},
		{"Diagnosis", r.Diagnosis},
		{"Prescription", r.Prescription},
		{"Advice (mm)", r.AdviceMM},
		{"Payment", r.PaymentStatus},
	}
	if !r.Timestamp.IsZero() {
		rows = append(rows, [2]string{"Timestamp", r.Timestamp.Local().Format(time.RFC3339)})
	}
	for _, kv := range rows {
		if kv[1] == "" {
			continue
		}
		_, _ = io.WriteString(tw, kv[0]+":\t"+esc(kv[1])+"\n")
	}
	return tw.Flush()
}

package main

import (
	"encoding/json"
	"fmt"
	mrand "math/rand"
	"os"
	"time"
)

// message and record mirror what the web intake app keeps in localStorage,
// so the output can be fed straight to `medchat import`.
type message struct {
	ID      int64  `json:"id"`
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

type record struct {
	Name          string `json:"name"`
	PatientID     string `json:"patientId"`
	Age           string `json:"age"`
	Sex           string `json:"sex"`
	Symptoms      string `json:"symptoms"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	Timestamp     string `json:"timestamp"`
	Diagnosis     string `json:"diagnosis"`
	Prescription  string `json:"prescription"`
	AdviceMM      string `json:"advice_mm"`
	PaymentStatus string `json:"payment_status"`
	Vitals        string `json:"vitals"`
}

var (
	names     = []string{"Aung Aung", "Su Su", "Ko Ko", "Hla Hla", "Zaw Min", "Thida"}
	symptoms  = []string{"fever", "cough", "headache", "stomach pain", "sore throat", "rash"}
	diagnoses = []string{"viral fever", "common cold", "tension headache", "gastritis", "pharyngitis", "dermatitis"}
	drugs     = []string{"Paracetamol 500mg", "ORS sachet", "Cetirizine 10mg", "Omeprazole 20mg"}
	payments  = []string{"Paid", "Pending", "Not Applicable"}
)

func main() {
	// Deterministic seed for reproducible output
	mr := mrand.New(mrand.NewSource(42))

	const total = 40
	base := time.Now().UTC()
	history := make([]record, 0, total)
	for i := 0; i < total; i++ {
		at := base.Add(-time.Duration(90*i+mr.Intn(60)) * time.Minute)
		k := mr.Intn(len(symptoms))
		history = append(history, record{
			Name:          names[mr.Intn(len(names))],
			PatientID:     fmt.Sprintf("P-%04d", i+1),
			Age:           fmt.Sprint(18 + mr.Intn(60)),
			Sex:           []string{"M", "F"}[mr.Intn(2)],
			Symptoms:      symptoms[k],
			Timestamp:     at.Format(time.RFC3339Nano),
			Diagnosis:     diagnoses[k],
			Prescription:  drugs[mr.Intn(len(drugs))],
			PaymentStatus: payments[mr.Intn(len(payments))],
			Vitals:        fmt.Sprintf("BP %d/%d", 100+mr.Intn(40), 60+mr.Intn(30)),
		})
	}

	start := base.Add(-time.Hour).UnixMilli()
	rec := history[0]
	chat := []message{
		{ID: start, Sender: "bot", Content: "Hello! What brings you in today?"},
		{ID: start + 60_000, Sender: "user", Content: "I have " + rec.Symptoms + " since yesterday."},
		{ID: start + 120_000, Sender: "bot", Content: "Thanks. Please follow this plan:\n\n1. " + rec.Prescription + "\n2. Drink plenty of water\n\n| Item | Dose |\n|---|---|\n| " + rec.Prescription + " | **twice daily** |"},
		{ID: start + 180_000, Sender: "bot", Content: "✅ **Appointment Confirmed** ✅\nSee you tomorrow at 10:00."},
	}

	dump := map[string]any{
		"thukhaChatHistory":         chat,
		"thukhaConsultationHistory": history,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(dump); err != nil {
		panic(err)
	}
}

package amqp

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"flussi/internal/core"
)

// SummaryMessage carries one period summary of an extraction run.
type SummaryMessage struct {
	RunID        string          `json:"run_id"`
	Source       string          `json:"source"`
	Period       string          `json:"period"`
	PeriodLabel  string          `json:"period_label"`
	Month        int             `json:"month"`
	Year         int             `json:"year"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	Balance      decimal.Decimal `json:"balance"`
	Timestamp    time.Time       `json:"timestamp"`
}

// NewSummaryMessage builds the message for summary s of report rep.
func NewSummaryMessage(rep core.Report, s core.PeriodSummary) *SummaryMessage {
	ts := rep.GeneratedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return &SummaryMessage{
		RunID:        rep.RunID,
		Source:       rep.Source,
		Period:       s.Period.String(),
		PeriodLabel:  s.Period.Label(),
		Month:        s.Period.Month,
		Year:         s.Period.Year,
		TotalIncome:  s.TotalIncome,
		TotalExpense: s.TotalExpense,
		Balance:      s.Balance,
		Timestamp:    ts.UTC(),
	}
}

func (m *SummaryMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SummaryMessageFromJSON(data []byte) (*SummaryMessage, error) {
	var msg SummaryMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

package accounting

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mvrodados/mvrodados/db"
)

// Periods accepted by Estadisticas.
const (
	PeriodMonth = "mes"
	PeriodYear  = "año"
)

// Bucket aggregates the transactions of one day or one month.
type Bucket struct {
	Periodo       string  `json:"periodo"`
	Ingresos      float64 `json:"ingresos"`
	Egresos       float64 `json:"egresos"`
	Balance       float64 `json:"balance"`
	Transacciones int     `json:"transacciones"`
}

// Stats is the result of Estadisticas.
type Stats struct {
	Periodo       string   `json:"periodo"`
	Desde         string   `json:"desde"`
	Data          []Bucket `json:"data"`
	TotalIngresos float64  `json:"total_ingresos"`
	TotalEgresos  float64  `json:"total_egresos"`
	TotalBalance  float64  `json:"total_balance"`
}

// Estadisticas groups this month's transactions by day ("mes") or this
// year's by month ("año"). Grouping happens here rather than in SQL so
// the same code runs on every dialect.
func (s *Service) Estadisticas(ctx context.Context, periodo string) (*Stats, error) {
	now := s.Now()
	var (
		from   time.Time
		layout string
	)
	switch strings.ToLower(strings.TrimSpace(periodo)) {
	case "", PeriodMonth:
		periodo = PeriodMonth
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		layout = dateLayout
	case PeriodYear, "ano", "anio":
		periodo = PeriodYear
		from = time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
		layout = "2006-01"
	default:
		return nil, fmt.Errorf("%w: periodo debe ser mes o año", ErrValidation)
	}

	rows, err := s.Transacciones(ctx, Filters{Desde: from.Format(dateLayout)})
	if err != nil {
		return nil, err
	}
	stats := &Stats{Periodo: periodo, Desde: from.Format(dateLayout), Data: bucketize(rows, layout)}

	balances, err := s.Balances(ctx, Filters{Desde: from.Format(dateLayout)})
	if err != nil {
		return nil, err
	}
	for _, r := range balances.Records {
		stats.TotalIngresos += db.AsFloat(r["ingresos"])
		stats.TotalEgresos += db.AsFloat(r["egresos"])
		stats.TotalBalance += db.AsFloat(r["balance"])
	}
	return stats, nil
}

func bucketize(rows *db.Rows, layout string) []Bucket {
	byKey := map[string]*Bucket{}
	for _, r := range rows.Records {
		t, ok := db.AsTime(r["fecha"])
		if !ok {
			continue
		}
		key := t.Format(layout)
		b := byKey[key]
		if b == nil {
			b = &Bucket{Periodo: key}
			byKey[key] = b
		}
		monto := db.AsFloat(r["monto"])
		tipo := db.AsString(r["tipo"])
		switch {
		case isIncome(tipo):
			b.Ingresos += monto
		case isExpense(tipo):
			b.Egresos += monto
		}
		b.Balance = b.Ingresos - b.Egresos
		b.Transacciones++
	}
	out := make([]Bucket, 0, len(byKey))
	for _, b := range byKey {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Periodo > out[j].Periodo })
	return out
}

// Report summarizes the current month for the chat shortcut.
type Report struct {
	Desde         time.Time
	Hasta         time.Time
	Ingresos      float64
	Egresos       float64
	Transacciones int
}

// Balance is income minus expenses.
func (r Report) Balance() float64 { return r.Ingresos - r.Egresos }

// MonthReport totals the transactions from the first of now's month to now.
func (s *Service) MonthReport(ctx context.Context, now time.Time) (*Report, error) {
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	rows, err := s.Transacciones(ctx, Filters{Desde: from.Format(dateLayout), Hasta: now.Format(dateLayout)})
	if err != nil {
		return nil, fmt.Errorf("month report: %w", err)
	}
	rep := &Report{Desde: from, Hasta: now}
	for _, r := range rows.Records {
		monto := db.AsFloat(r["monto"])
		switch tipo := db.AsString(r["tipo"]); {
		case isIncome(tipo):
			rep.Ingresos += monto
		case isExpense(tipo):
			rep.Egresos += monto
		}
		rep.Transacciones++
	}
	return rep, nil
}

// Format renders the report as a chat answer.
func (r Report) Format() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📒 **Resumen contable** (%s al %s)\n\n", r.Desde.Format("02/01/2006"), r.Hasta.Format("02/01/2006"))
	if r.Transacciones == 0 {
		sb.WriteString("No hay transacciones registradas en el período.\n")
	}
	fmt.Fprintf(&sb, "💰 Ingresos: %s\n", Money(r.Ingresos))
	fmt.Fprintf(&sb, "💸 Egresos: %s\n", Money(r.Egresos))
	fmt.Fprintf(&sb, "📈 Balance: %s\n", Money(r.Balance()))
	fmt.Fprintf(&sb, "🧾 Transacciones: %d", r.Transacciones)
	return sb.String()
}

// Money formats an amount as $1.234.567,89 (es-AR style).
func Money(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	cents := int64(v*100 + 0.5)
	whole, frac := cents/100, cents%100

	digits := fmt.Sprint(whole)
	var sb strings.Builder
	for i, c := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			sb.WriteByte('.')
		}
		sb.WriteRune(c)
	}
	sign := ""
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("%s$%s,%02d", sign, sb.String(), frac)
}

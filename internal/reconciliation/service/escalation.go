package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fechamento-diario/internal/domain/closure"
	"github.com/fechamento-diario/internal/domain/divergence"
	"github.com/fechamento-diario/internal/normalize"
	"github.com/fechamento-diario/internal/platform/messaging/producers"
)

// maxAlertDescriptions caps how many divergence descriptions the alert body
// carries; the rest are summarized as a count.
const maxAlertDescriptions = 5

// Escalator decides whether an ingest outcome is critical and, when it is,
// publishes an alert. Delivery is best-effort: a failed publish is logged and
// never surfaces to the ingest caller.
type Escalator struct {
	logger         *slog.Logger
	notifier       producers.AlertNotifier
	valueThreshold int64 // Total divergence value in cents
	countThreshold int
}

// NewEscalator creates an escalator with the configured thresholds.
func NewEscalator(logger *slog.Logger, notifier producers.AlertNotifier, valueThreshold int64, countThreshold int) *Escalator {
	return &Escalator{
		logger:         logger,
		notifier:       notifier,
		valueThreshold: valueThreshold,
		countThreshold: countThreshold,
	}
}

// CheckAndNotify publishes an alert when the divergences cross either
// threshold: total divergence value or divergence count.
func (e *Escalator) CheckAndNotify(ctx context.Context, c *closure.DailyClosure, divergences []*divergence.Divergence) {
	if len(divergences) == 0 {
		return
	}

	var total int64
	for _, d := range divergences {
		total += d.DifferenceValue()
	}

	if total < e.valueThreshold && len(divergences) < e.countThreshold {
		return
	}

	dateBR := normalize.FormatDateBR(c.Date)
	title := fmt.Sprintf("Divergencias criticas no fechamento de %s", dateBR)

	var b strings.Builder
	fmt.Fprintf(&b, "Fechamento %s: %d divergencia(s), valor total %s\n",
		dateBR, len(divergences), normalize.FormatCurrencyBRL(total))
	for i, d := range divergences {
		if i == maxAlertDescriptions {
			fmt.Fprintf(&b, "... e mais %d divergencia(s)\n", len(divergences)-maxAlertDescriptions)
			break
		}
		fmt.Fprintf(&b, "- [%s] %s: %s\n", string(d.Kind), d.ReferenceCode, d.Description)
	}

	if err := e.notifier.Notify(ctx, title, b.String()); err != nil {
		e.logger.Error("Failed to publish escalation alert",
			"date", closure.DateKey(c.Date),
			"divergences", len(divergences),
			"error", err,
		)
		return
	}

	e.logger.Warn("Escalation alert published",
		"date", closure.DateKey(c.Date),
		"divergences", len(divergences),
		"total_value_cents", total,
	)
}

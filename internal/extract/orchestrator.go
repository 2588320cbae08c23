package extract

import (
	"go.uber.org/zap"

	"codetracker/internal/models"
	"codetracker/internal/page"
)

// PageStatus is the one-way notification emitted after every extraction,
// for listeners that render a problem-page indicator.
type PageStatus struct {
	URL           string
	IsProblemPage bool
}

// Orchestrator runs the matching platform extractor against the current
// page and always produces a complete draft.
type Orchestrator struct {
	page   *page.Handle
	notify chan PageStatus
	log    *zap.Logger
}

func NewOrchestrator(h *page.Handle, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		page:   h,
		notify: make(chan PageStatus, 8),
		log:    log,
	}
}

// Notifications exposes the page-status stream. Sends never block; when
// no one listens the notification is dropped.
func (o *Orchestrator) Notifications() <-chan PageStatus {
	return o.notify
}

// ExtractProblemData produces a draft for the current page with every
// field defaulted. It never fails; an unrecognized platform yields a
// draft with Platform == "" which the UI reports as not a problem page.
func (o *Orchestrator) ExtractProblemData() models.ProblemDraft {
	url := o.page.URL()
	platform := DetectPlatform(url)
	draft := ExtractFields(platform, o.page.Document(), url)

	o.log.Debug("extracted problem data",
		zap.String("url", url),
		zap.String("platform", platform),
		zap.String("title", draft.Title),
		zap.String("difficulty", string(draft.Difficulty)),
		zap.Int("topics", len(draft.Topics)),
	)

	select {
	case o.notify <- PageStatus{URL: url, IsProblemPage: platform != ""}:
	default:
	}
	return draft
}

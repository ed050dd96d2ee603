// Package jobs runs batch translation jobs in the background and records
// their progress.
package jobs

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/steveire/grantlee/internal/adapters/llm/factory"
	"github.com/steveire/grantlee/internal/domain"
	"github.com/steveire/grantlee/internal/ports"
	"github.com/steveire/grantlee/internal/usecase/translator"
)

const (
	defaultItemTimeout = 60 * time.Second
	defaultWorkers     = 4
)

type Deps struct {
	Jobs         ports.JobRepository
	Projects     ports.ProjectRepository
	Files        ports.FileRepository
	Units        ports.UnitRepository
	Providers    ports.ProviderRepository
	Translations ports.TranslationRepository
	Log          *zap.Logger
	// Workers bounds concurrent provider calls per job; 0 means 4.
	Workers int
	// ItemTimeout bounds one translation; 0 means 60s.
	ItemTimeout time.Duration
}

// EventEmitter receives job lifecycle events.
type EventEmitter interface {
	Emit(name string, payload map[string]any)
}

// LogEmitter writes events to a zap logger.
type LogEmitter struct{ Log *zap.Logger }

func (e LogEmitter) Emit(name string, payload map[string]any) {
	fields := make([]zap.Field, 0, len(payload))
	for k, v := range payload {
		fields = append(fields, zap.Any(k, v))
	}
	e.Log.Debug(name, fields...)
}

type Runner struct {
	d      Deps
	trans  *translator.Service
	mu     sync.Mutex
	active map[int64]*run
	em     EventEmitter
}

type run struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRunner(d Deps, trans *translator.Service) *Runner {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Workers <= 0 {
		d.Workers = defaultWorkers
	}
	if d.ItemTimeout <= 0 {
		d.ItemTimeout = defaultItemTimeout
	}
	return &Runner{d: d, trans: trans, active: map[int64]*run{}, em: LogEmitter{Log: d.Log}}
}

func (r *Runner) SetEmitter(em EventEmitter) { r.em = em }

type TranslateFileParams struct {
	FileID        int64    `json:"file_id"`
	TargetLocales []string `json:"target_locales"`
	Model         string   `json:"model"`
	// Force retranslates units that already have a complete translation.
	Force bool `json:"force"`
}

// TranslateUnitsParams describes a batch of specific units to translate.
type TranslateUnitsParams struct {
	UnitIDs []int64  `json:"unit_ids"`
	Locales []string `json:"locales"`
	Model   string   `json:"model"`
	Force   bool     `json:"force"`
}

type workItem struct {
	unit   *domain.Unit
	locale string
}

func (r *Runner) StartTranslateFile(ctx context.Context, projectID, providerID int64, p TranslateFileParams) (int64, error) {
	p.Model = r.resolveModel(ctx, providerID, p.Model)
	units, err := r.d.Units.ListByFile(ctx, p.FileID)
	if err != nil {
		return 0, err
	}
	items, err := r.pending(ctx, units, p.TargetLocales, p.Force)
	if err != nil {
		return 0, err
	}
	return r.start(ctx, domain.JobTranslateFile, projectID, providerID, p, p.Model, items)
}

func (r *Runner) StartTranslateUnits(ctx context.Context, projectID, providerID int64, p TranslateUnitsParams) (int64, error) {
	p.Model = r.resolveModel(ctx, providerID, p.Model)
	units := make([]*domain.Unit, 0, len(p.UnitIDs))
	for _, id := range p.UnitIDs {
		u, err := r.d.Units.Get(ctx, id)
		if err != nil {
			return 0, err
		}
		units = append(units, u)
	}
	items, err := r.pending(ctx, units, p.Locales, p.Force)
	if err != nil {
		return 0, err
	}
	return r.start(ctx, domain.JobTranslateUnits, projectID, providerID, p, p.Model, items)
}

// pending pairs units with the locales still missing a complete
// translation, or all locales when force is set.
func (r *Runner) pending(ctx context.Context, units []*domain.Unit, locales []string, force bool) ([]workItem, error) {
	var items []workItem
	for _, u := range units {
		for _, tgt := range locales {
			if !force {
				t, err := r.d.Translations.Get(ctx, u.ID, tgt)
				if err != nil {
					return nil, err
				}
				if t.Complete() && t.Status != domain.StatusObsolete {
					continue
				}
			}
			items = append(items, workItem{unit: u, locale: tgt})
		}
	}
	return items, nil
}

func (r *Runner) start(ctx context.Context, typ string, projectID, providerID int64, params any, model string, items []workItem) (int64, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return 0, errors.Wrap(err, "encode job params")
	}
	job := &domain.Job{Type: typ, Status: domain.JobQueued, ProjectID: &projectID, ProviderID: &providerID, ParamsRaw: string(paramsJSON), Total: len(items)}
	id, err := r.d.Jobs.Create(ctx, job)
	if err != nil {
		return 0, err
	}
	if err := r.d.Jobs.UpdateProgress(ctx, id, 0, len(items), domain.JobRunning); err != nil {
		return 0, err
	}
	r.em.Emit("job.started", map[string]any{"job_id": id, "total": len(items), "model": model, "provider_id": providerID})
	r.log(ctx, id, "job started", nil, zap.String("type", typ), zap.Int64("provider", providerID), zap.String("model", model), zap.Int("items", len(items)))

	cctx, cancel := context.WithCancel(context.Background())
	rn := &run{cancel: cancel, done: make(chan struct{})}
	r.mu.Lock()
	r.active[id] = rn
	r.mu.Unlock()
	go func() {
		defer close(rn.done)
		defer r.finish(id)
		r.run(cctx, id, projectID, providerID, model, items)
	}()
	return id, nil
}

func (r *Runner) finish(jobID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rn, ok := r.active[jobID]; ok {
		rn.cancel()
		delete(r.active, jobID)
	}
}

// run translates items with a bounded worker pool. Item failures are
// recorded and do not stop the job.
func (r *Runner) run(ctx context.Context, jobID, projectID, providerID int64, model string, items []workItem) {
	store := context.Background()
	srcLang, projectName := "", ""
	if p, err := r.d.Projects.Get(store, projectID); err == nil {
		srcLang, projectName = p.SourceLang, p.Name
	}
	paths := map[int64]string{}

	var mu sync.Mutex
	done, failed := 0, 0
	g := new(errgroup.Group)
	g.SetLimit(r.d.Workers)
	for _, it := range items {
		if ctx.Err() != nil {
			break
		}
		path, ok := paths[it.unit.FileID]
		if !ok {
			if f, err := r.d.Files.Get(store, it.unit.FileID); err == nil {
				path = f.Path
			}
			paths[it.unit.FileID] = path
		}
		g.Go(func() error {
			err := r.translateItem(ctx, jobID, providerID, model, it, translator.TranslateArgs{
				ProviderID: providerID,
				Unit:       it.unit,
				SourceLang: srcLang,
				TargetLang: it.locale,
				Model:      model,
				Project:    projectName,
				FilePath:   path,
			})
			mu.Lock()
			defer mu.Unlock()
			done++
			if err != nil {
				failed++
			}
			r.stored(r.d.Jobs.UpdateProgress(store, jobID, done, len(items), domain.JobRunning), "update job progress", jobID)
			r.em.Emit("job.progress", map[string]any{"job_id": jobID, "done": done, "total": len(items), "status": domain.JobRunning, "model": model})
			return nil
		})
	}
	_ = g.Wait()

	status := domain.JobDone
	switch {
	case ctx.Err() != nil:
		status = domain.JobCanceled
	case failed > 0 && failed == len(items):
		status = domain.JobFailed
	}
	r.stored(r.d.Jobs.UpdateProgress(store, jobID, done, len(items), status), "update job progress", jobID)
	r.em.Emit("job.progress", map[string]any{"job_id": jobID, "done": done, "total": len(items), "status": status, "model": model})
	r.log(store, jobID, "job finished", nil, zap.String("status", status), zap.Int("done", done), zap.Int("failed", failed))
}

func (r *Runner) translateItem(ctx context.Context, jobID, providerID int64, model string, it workItem, args translator.TranslateArgs) error {
	store := context.Background()
	u := it.unit
	tgt := it.locale
	itemID, err := r.d.Jobs.AddItem(store, &domain.JobItem{JobID: jobID, UnitID: &u.ID, Locale: &tgt, Status: domain.JobRunning})
	if err != nil {
		return err
	}
	r.em.Emit("job.item.start", map[string]any{"job_id": jobID, "unit_id": u.ID, "locale": tgt, "model": model})

	ictx, cancel := context.WithTimeout(ctx, r.d.ItemTimeout)
	forms, err := r.trans.TranslateOne(ictx, args)
	cancel()
	if err == nil {
		err = r.d.Translations.Upsert(store, &domain.Translation{UnitID: u.ID, Locale: tgt, Forms: forms, Status: domain.StatusMachine, ProviderID: &providerID})
	}
	if err != nil {
		r.stored(r.d.Jobs.UpdateItem(store, itemID, domain.JobFailed, err.Error()), "update job item", jobID)
		r.log(store, jobID, "translate failed", err, zap.String("source", abbreviate(u.SourceText)), zap.String("locale", tgt))
		r.em.Emit("job.item.done", map[string]any{"job_id": jobID, "unit_id": u.ID, "locale": tgt, "error": err.Error(), "model": model})
		return err
	}
	r.stored(r.d.Jobs.UpdateItem(store, itemID, domain.JobDone, ""), "update job item", jobID)
	r.em.Emit("job.item.done", map[string]any{"job_id": jobID, "unit_id": u.ID, "locale": tgt, "forms": forms, "model": model})
	return nil
}

// resolveModel falls back to the provider default and maps OpenRouter
// display labels to model IDs.
func (r *Runner) resolveModel(ctx context.Context, providerID int64, model string) string {
	prov, err := r.d.Providers.Get(ctx, providerID)
	if err != nil {
		return model
	}
	if strings.TrimSpace(model) == "" {
		return prov.Model
	}
	if prov.Type != domain.ProviderOpenRouter || !strings.ContainsAny(model, " ()") {
		return model
	}
	adapter, ok := factory.FromProvider(prov, r.d.ItemTimeout)
	if !ok {
		return model
	}
	list, err := adapter.ListModels(ctx)
	if err != nil {
		r.d.Log.Warn("list models failed", zap.Int64("provider", providerID), zap.Error(err))
		return model
	}
	for _, mi := range list {
		if strings.EqualFold(mi.Name, model) || strings.EqualFold(mi.Description, model) {
			return mi.Name
		}
	}
	return model
}

// log records a job log line and mirrors it to the process logger. A
// non-nil err makes it an error line.
func (r *Runner) log(ctx context.Context, jobID int64, message string, err error, fields ...zap.Field) {
	level, text := "info", message
	if err != nil {
		level, text = "error", message+": "+err.Error()
	}
	r.stored(r.d.Jobs.AddLog(ctx, &domain.JobLog{JobID: jobID, Level: level, Message: text}), "add job log", jobID)
	fields = append(fields, zap.Int64("job", jobID))
	if err != nil {
		r.d.Log.Warn(message, append(fields, zap.Error(err))...)
	} else {
		r.d.Log.Info(message, fields...)
	}
	r.em.Emit("job.log", map[string]any{"job_id": jobID, "level": level, "message": text, "ts": time.Now().UTC().Format(time.RFC3339)})
}

// Cancel stops a running job. It reports false for unknown or finished
// jobs.
func (r *Runner) Cancel(jobID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rn, ok := r.active[jobID]; ok {
		rn.cancel()
		return true
	}
	return false
}

// Wait blocks until the job finishes or ctx ends.
func (r *Runner) Wait(ctx context.Context, jobID int64) error {
	r.mu.Lock()
	rn, ok := r.active[jobID]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-rn.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stored reports a failed write of job bookkeeping. The job itself keeps
// running.
func (r *Runner) stored(err error, what string, jobID int64) {
	if err != nil {
		r.d.Log.Warn(what+" failed", zap.Int64("job", jobID), zap.Error(err))
	}
}

// abbreviate shortens s to at most 60 characters for log fields.
func abbreviate(s string) string {
	if utf8.RuneCountInString(s) <= 60 {
		return s
	}
	return string([]rune(s)[:57]) + "..."
}

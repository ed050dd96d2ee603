package jobs_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/steveire/grantlee/internal/adapters/db/sqlite"
	"github.com/steveire/grantlee/internal/adapters/prompt"
	"github.com/steveire/grantlee/internal/catalog"
	"github.com/steveire/grantlee/internal/domain"
	"github.com/steveire/grantlee/internal/ports"
	"github.com/steveire/grantlee/internal/usecase/jobs"
	"github.com/steveire/grantlee/internal/usecase/translator"
)

// echoProvider answers "<locale>:<source>" for every form and fails on
// sources starting with "!".
type echoProvider struct {
	mu    sync.Mutex
	calls int
}

func (p *echoProvider) Translate(_ context.Context, seg ports.Segment, tp ports.TranslateParams) (ports.TranslateResult, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if len(seg.Text) > 0 && seg.Text[0] == '!' {
		return ports.TranslateResult{}, errors.New("refused")
	}
	out := make([]string, seg.Forms)
	for i := range out {
		out[i] = tp.TargetLang + ":" + seg.Text
	}
	return ports.TranslateResult{Forms: out}, nil
}

func (p *echoProvider) ListModels(context.Context) ([]ports.ModelInfo, error) { return nil, nil }
func (p *echoProvider) Test(context.Context) error                          { return nil }

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) Emit(name string, _ map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, name)
}

type fixture struct {
	runner   *jobs.Runner
	provider *echoProvider
	jobs     *sqlite.JobRepo
	trans    *sqlite.TranslationRepo
	project  *domain.Project
	prov     *domain.Provider
	file     *domain.File
	units    []*domain.Unit
	deps     jobs.Deps
	tsvc     *translator.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Init(filepath.Join(t.TempDir(), "grantlee.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{provider: &echoProvider{}, jobs: sqlite.NewJobRepo(db), trans: sqlite.NewTranslationRepo(db)}
	projects := sqlite.NewProjectRepo(db)
	files := sqlite.NewFileRepo(db)
	units := sqlite.NewUnitRepo(db)
	providers := sqlite.NewProviderRepo(db)
	cache := sqlite.NewCacheRepo(db)

	f.project = &domain.Project{Name: "demo", SourceLang: "en", Context: catalog.DefaultContext}
	require.NoError(t, projects.Create(ctx, f.project))
	f.prov = &domain.Provider{Type: domain.ProviderOllama, Name: "local", Model: "llama3"}
	require.NoError(t, providers.Create(ctx, f.prov))
	f.file = &domain.File{ProjectID: f.project.ID, Path: "app_de_DE.ts", Format: "ts", Locale: "de_DE"}
	require.NoError(t, files.Create(ctx, f.file))
	for i, src := range []string{"Birthday", "%n People", "!Broken"} {
		f.units = append(f.units, &domain.Unit{
			FileID: f.file.ID, Key: catalog.MessageKey(catalog.DefaultContext, src, ""), Context: catalog.DefaultContext,
			SourceText: src, Numerus: src == "%n People", Position: i,
		})
	}
	require.NoError(t, units.UpsertBatch(ctx, f.units))

	f.tsvc = translator.New(translator.Deps{
		Providers:     providers,
		Cache:         cache,
		Prompt:        prompt.New(sqlite.NewTemplateRepo(db)),
		BuildProvider: func(*domain.Provider) (ports.Provider, error) { return f.provider, nil },
		Backoff:       func() backoff.BackOff { return &backoff.ZeroBackOff{} },
	})
	f.deps = jobs.Deps{
		Jobs: f.jobs, Projects: projects, Files: files, Units: units,
		Providers: providers, Translations: f.trans, Workers: 2,
	}
	f.runner = jobs.NewRunner(f.deps, f.tsvc)
	return f
}

func (f *fixture) wait(t *testing.T, id int64) *domain.Job {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, f.runner.Wait(ctx, id))
	job, err := f.jobs.Get(context.Background(), id)
	require.NoError(t, err)
	return job
}

func TestTranslateFile(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	rec := &recorder{}
	f.runner.SetEmitter(rec)

	require.NoError(t, f.trans.Upsert(ctx, &domain.Translation{UnitID: f.units[0].ID, Locale: "de_DE", Forms: []string{"Geburtstag"}, Status: domain.StatusTranslated}))

	id, err := f.runner.StartTranslateFile(ctx, f.project.ID, f.prov.ID, jobs.TranslateFileParams{FileID: f.file.ID, TargetLocales: []string{"de_DE"}})
	require.NoError(t, err)
	job := f.wait(t, id)
	assert.Equal(t, domain.JobDone, job.Status)
	assert.Equal(t, 2, job.Total)
	assert.Equal(t, 2, job.Progress)
	assert.Contains(t, job.ParamsRaw, `"model":"llama3"`)

	kept, err := f.trans.Get(ctx, f.units[0].ID, "de_DE")
	require.NoError(t, err)
	assert.Equal(t, []string{"Geburtstag"}, kept.Forms)

	plural, err := f.trans.Get(ctx, f.units[1].ID, "de_DE")
	require.NoError(t, err)
	require.NotNil(t, plural)
	assert.Equal(t, domain.StatusMachine, plural.Status)
	assert.Equal(t, []string{"de_DE:%n People", "de_DE:%n People"}, plural.Forms)
	assert.Equal(t, &f.prov.ID, plural.ProviderID)

	items, err := f.jobs.ListItems(ctx, id)
	require.NoError(t, err)
	statuses := map[string]int{}
	for _, it := range items {
		statuses[it.Status]++
	}
	assert.Equal(t, map[string]int{domain.JobDone: 1, domain.JobFailed: 1}, statuses)

	logs, err := f.jobs.ListLogs(ctx, id, 100)
	require.NoError(t, err)
	assert.NotEmpty(t, logs)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Contains(t, rec.events, "job.started")
	assert.Contains(t, rec.events, "job.item.done")
}

func TestTranslateUnitsForce(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.trans.Upsert(ctx, &domain.Translation{UnitID: f.units[0].ID, Locale: "fr_FR", Forms: []string{"Anniversaire"}, Status: domain.StatusTranslated}))

	id, err := f.runner.StartTranslateUnits(ctx, f.project.ID, f.prov.ID, jobs.TranslateUnitsParams{UnitIDs: []int64{f.units[0].ID}, Locales: []string{"fr_FR"}})
	require.NoError(t, err)
	job := f.wait(t, id)
	assert.Equal(t, 0, job.Total)
	assert.Equal(t, 0, f.provider.calls)

	id, err = f.runner.StartTranslateUnits(ctx, f.project.ID, f.prov.ID, jobs.TranslateUnitsParams{UnitIDs: []int64{f.units[0].ID}, Locales: []string{"fr_FR"}, Force: true})
	require.NoError(t, err)
	job = f.wait(t, id)
	assert.Equal(t, domain.JobDone, job.Status)

	tr, err := f.trans.Get(ctx, f.units[0].ID, "fr_FR")
	require.NoError(t, err)
	assert.Equal(t, []string{"fr_FR:Birthday"}, tr.Forms)
}

func TestFailedJob(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	id, err := f.runner.StartTranslateUnits(context.Background(), f.project.ID, f.prov.ID, jobs.TranslateUnitsParams{UnitIDs: []int64{f.units[2].ID}, Locales: []string{"de_DE"}})
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, f.wait(t, id).Status)
}

func TestCancelUnknownJob(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	assert.False(t, f.runner.Cancel(42))
	assert.NoError(t, f.runner.Wait(context.Background(), 42))
}

// brokenItems loses every item status update.
type brokenItems struct {
	*sqlite.JobRepo
}

func (brokenItems) UpdateItem(context.Context, int64, string, string) error {
	return errors.New("disk full")
}

func TestItemUpdateFailuresAreLogged(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	core, logs := observer.New(zap.WarnLevel)
	deps := f.deps
	deps.Jobs = brokenItems{f.jobs}
	deps.Log = zap.New(core)
	f.runner = jobs.NewRunner(deps, f.tsvc)

	id, err := f.runner.StartTranslateUnits(context.Background(), f.project.ID, f.prov.ID, jobs.TranslateUnitsParams{UnitIDs: []int64{f.units[0].ID, f.units[2].ID}, Locales: []string{"de_DE"}})
	require.NoError(t, err)
	assert.Equal(t, domain.JobDone, f.wait(t, id).Status)

	failed := logs.FilterMessage("update job item failed").All()
	require.Len(t, failed, 2)
	for _, e := range failed {
		assert.Equal(t, id, e.ContextMap()["job"])
		assert.Equal(t, "disk full", e.ContextMap()["error"])
	}
	refused := logs.FilterMessage("translate failed").All()
	require.Len(t, refused, 1)
	assert.Equal(t, "!Broken", refused[0].ContextMap()["source"])
}

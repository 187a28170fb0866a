package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/daychain/internal/constants"
	"github.com/julianstephens/daychain/internal/errors"
	"github.com/julianstephens/daychain/internal/models"
)

type document struct {
	Version     int                              `json:"version"`
	Settings    models.Settings                  `json:"settings"`
	Commitments map[string]models.Commitment     `json:"commitments"`
	Tasks       map[string]models.Task           `json:"tasks"`
	Routines    map[string]models.Routine        `json:"routines"`
	Overrides   map[string][]models.StepOverride `json:"step_overrides"` // user -> overrides
	CustomSteps map[string][]models.CustomStep   `json:"custom_steps"`   // user -> steps in insertion order
	Plans       map[string]models.DailyPlan      `json:"plans"`          // id -> plan
}

// JSONStore keeps everything in one JSON document. An empty path keeps the document in
// memory only, which is what the engine tests use.
type JSONStore struct {
	path string
	mu   sync.Mutex
	doc  *document
}

func NewJSONStore(configPath string) *JSONStore {
	return &JSONStore{
		path: configPath,
	}
}

// NewMemoryStore returns an initialized in-memory store.
func NewMemoryStore() *JSONStore {
	s := NewJSONStore("")
	_ = s.Init()
	return s
}

func defaultSettings() models.Settings {
	return models.Settings{
		UserID:        constants.DefaultUserID,
		WakeTime:      constants.DefaultWakeTime,
		SleepTime:     constants.DefaultSleepTime,
		Timezone:      constants.DefaultTimezone,
		DefaultEnergy: constants.DefaultEnergy,
		HomeLocation:  constants.DefaultHomeLocation,
	}
}

func (s *JSONStore) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path != "" {
		// Create config directory if it doesn't exist
		dir := filepath.Dir(s.path)
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}

		// Check if file already exists
		if _, err := os.Stat(s.path); err == nil {
			return fmt.Errorf("storage already initialized at %s", s.path)
		}
	}

	s.doc = &document{Version: 1, Settings: defaultSettings()}
	s.ensureMaps()
	return s.save()
}

func (s *JSONStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		if s.doc == nil {
			return fmt.Errorf("storage not initialized, run 'daychain init' first")
		}
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("storage not initialized, run 'daychain init' first")
		}
		return fmt.Errorf("failed to read storage: %w", err)
	}

	s.doc = &document{}
	if err := json.Unmarshal(data, s.doc); err != nil {
		return fmt.Errorf("failed to parse storage: %w", err)
	}
	s.ensureMaps()
	return nil
}

func (s *JSONStore) Close() error {
	return nil
}

func (s *JSONStore) ensureMaps() {
	if s.doc.Commitments == nil {
		s.doc.Commitments = make(map[string]models.Commitment)
	}
	if s.doc.Tasks == nil {
		s.doc.Tasks = make(map[string]models.Task)
	}
	if s.doc.Routines == nil {
		s.doc.Routines = make(map[string]models.Routine)
	}
	if s.doc.Overrides == nil {
		s.doc.Overrides = make(map[string][]models.StepOverride)
	}
	if s.doc.CustomSteps == nil {
		s.doc.CustomSteps = make(map[string][]models.CustomStep)
	}
	if s.doc.Plans == nil {
		s.doc.Plans = make(map[string]models.DailyPlan)
	}
}

// save must be called with mu held.
func (s *JSONStore) save() error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal storage: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *JSONStore) GetConfigPath() string {
	return s.path
}

func (s *JSONStore) GetSettings(ctx context.Context) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Settings, nil
}

func (s *JSONStore) SaveSettings(ctx context.Context, settings models.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Settings = settings
	return s.save()
}

func (s *JSONStore) AddCommitment(ctx context.Context, c models.Commitment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Commitments[c.ID] = c
	return s.save()
}

func (s *JSONStore) GetCommitments(ctx context.Context, userID string, from, to time.Time) ([]models.Commitment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Commitment
	for _, c := range s.doc.Commitments {
		if c.UserID == userID && !c.Start.Before(from) && c.Start.Before(to) {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b models.Commitment) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *JSONStore) DeleteCommitment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.doc.Commitments[id]; !ok {
		return fmt.Errorf("commitment %s: %w", id, errors.ErrNotFound)
	}
	delete(s.doc.Commitments, id)
	return s.save()
}

func (s *JSONStore) AddTask(ctx context.Context, task models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task.Status == "" {
		task.Status = models.TaskPending
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	s.doc.Tasks[task.ID] = task
	return s.save()
}

func (s *JSONStore) GetPendingTasks(ctx context.Context, userID string) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Task
	for _, t := range s.doc.Tasks {
		if t.UserID == userID && t.Status == models.TaskPending {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b models.Task) int { return strings.Compare(a.ID, b.ID) })
	SortTasksByDeadline(out)
	return out, nil
}

func (s *JSONStore) UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.doc.Tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, errors.ErrNotFound)
	}
	t.Status = status
	s.doc.Tasks[id] = t
	return s.save()
}

func (s *JSONStore) AddRoutine(ctx context.Context, r models.Routine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Routines[r.ID] = r
	return s.save()
}

func (s *JSONStore) GetRoutines(ctx context.Context, userID string, activeOnly bool) ([]models.Routine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Routine
	for _, r := range s.doc.Routines {
		if r.UserID == userID && (!activeOnly || r.Active) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b models.Routine) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *JSONStore) GetStepOverrides(ctx context.Context, userID string) ([]models.StepOverride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.doc.Overrides[userID]), nil
}

func (s *JSONStore) SaveStepOverride(ctx context.Context, userID string, o models.StepOverride) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.doc.Overrides[userID]
	i := slices.IndexFunc(list, func(x models.StepOverride) bool {
		return x.AnchorType == o.AnchorType && x.StepID == o.StepID
	})
	if i >= 0 {
		list[i] = o
	} else {
		list = append(list, o)
	}
	s.doc.Overrides[userID] = list
	return s.save()
}

func (s *JSONStore) GetCustomSteps(ctx context.Context, userID string) ([]models.CustomStep, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.doc.CustomSteps[userID]), nil
}

func (s *JSONStore) SaveCustomStep(ctx context.Context, userID string, c models.CustomStep) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.doc.CustomSteps[userID]
	if i := slices.IndexFunc(list, func(x models.CustomStep) bool { return x.ID == c.ID }); i >= 0 {
		list[i] = c
	} else {
		list = append(list, c)
	}
	s.doc.CustomSteps[userID] = list
	return s.save()
}

func (s *JSONStore) DeleteCustomStep(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.doc.CustomSteps[userID]
	i := slices.IndexFunc(list, func(x models.CustomStep) bool { return x.ID == id })
	if i < 0 {
		return fmt.Errorf("custom step %s: %w", id, errors.ErrNotFound)
	}
	s.doc.CustomSteps[userID] = slices.Delete(list, i, i+1)
	return s.save()
}

func (s *JSONStore) SavePlan(ctx context.Context, plan *models.DailyPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	plan.Revision = 1
	for id, existing := range s.doc.Plans {
		if existing.UserID == plan.UserID && existing.Date == plan.Date {
			plan.ID = existing.ID
			plan.Revision = existing.Revision + 1
			plan.CreatedAt = existing.CreatedAt
			delete(s.doc.Plans, id)
		}
	}
	now := time.Now().UTC()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = now
	for i := range plan.Blocks {
		plan.Blocks[i].PlanID = plan.ID
	}

	stored, err := clonePlan(*plan)
	if err != nil {
		return err
	}
	s.doc.Plans[plan.ID] = stored
	return s.save()
}

func (s *JSONStore) ReplacePlan(ctx context.Context, plan *models.DailyPlan, expectedRevision int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.doc.Plans[plan.ID]
	if !ok {
		return fmt.Errorf("plan %s: %w", plan.ID, errors.ErrNotFound)
	}
	if existing.Revision != expectedRevision {
		return fmt.Errorf("plan %s at revision %d, expected %d: %w", plan.ID, existing.Revision, expectedRevision, errors.ErrRevisionConflict)
	}

	plan.Revision = expectedRevision + 1
	plan.UpdatedAt = time.Now().UTC()
	for i := range plan.Blocks {
		plan.Blocks[i].PlanID = plan.ID
	}
	stored, err := clonePlan(*plan)
	if err != nil {
		return err
	}
	s.doc.Plans[plan.ID] = stored
	return s.save()
}

func (s *JSONStore) GetPlan(ctx context.Context, id string) (models.DailyPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.doc.Plans[id]
	if !ok {
		return models.DailyPlan{}, fmt.Errorf("plan %s: %w", id, errors.ErrNotFound)
	}
	return clonePlan(p)
}

func (s *JSONStore) GetPlanByDate(ctx context.Context, userID, date string) (models.DailyPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.doc.Plans {
		if p.UserID == userID && p.Date == date {
			return clonePlan(p)
		}
	}
	return models.DailyPlan{}, fmt.Errorf("plan for %s on %s: %w", userID, date, errors.ErrNotFound)
}

func (s *JSONStore) PatchBlock(ctx context.Context, planID, blockID string, patch BlockPatch) (models.TimeBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.doc.Plans[planID]
	if !ok {
		return models.TimeBlock{}, fmt.Errorf("plan %s: %w", planID, errors.ErrNotFound)
	}
	i := p.BlockByID(blockID)
	if i < 0 {
		return models.TimeBlock{}, fmt.Errorf("block %s in plan %s: %w", blockID, planID, errors.ErrStaleReference)
	}

	p, err := clonePlan(p)
	if err != nil {
		return models.TimeBlock{}, err
	}
	patch.Apply(&p.Blocks[i])
	p.Revision++
	p.UpdatedAt = time.Now().UTC()
	s.doc.Plans[planID] = p
	return p.Blocks[i], s.save()
}

// clonePlan deep-copies a plan so callers never share slices with the document.
func clonePlan(p models.DailyPlan) (models.DailyPlan, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return models.DailyPlan{}, fmt.Errorf("failed to copy plan: %w", err)
	}
	var out models.DailyPlan
	if err := json.Unmarshal(data, &out); err != nil {
		return models.DailyPlan{}, fmt.Errorf("failed to copy plan: %w", err)
	}
	return out, nil
}

package profile

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/profile-engine/internal/db"
)

// fakeState is the committed content of fakeRegistry.
type fakeState struct {
	profiles    map[uuid.UUID]db.Profile
	docs        []db.Document
	experiences map[uuid.UUID]db.Experience
	education   map[uuid.UUID]db.Education
	userSkills  map[uuid.UUID]map[uuid.UUID]db.Skill
	catalog     map[string]db.Skill
}

func newFakeState() *fakeState {
	return &fakeState{
		profiles:    map[uuid.UUID]db.Profile{},
		experiences: map[uuid.UUID]db.Experience{},
		education:   map[uuid.UUID]db.Education{},
		userSkills:  map[uuid.UUID]map[uuid.UUID]db.Skill{},
		catalog:     map[string]db.Skill{},
	}
}

func (s *fakeState) clone() *fakeState {
	c := newFakeState()
	for k, v := range s.profiles {
		c.profiles[k] = v
	}
	c.docs = append(c.docs, s.docs...)
	for k, v := range s.experiences {
		c.experiences[k] = v
	}
	for k, v := range s.education {
		c.education[k] = v
	}
	for u, set := range s.userSkills {
		m := map[uuid.UUID]db.Skill{}
		for k, v := range set {
			m[k] = v
		}
		c.userSkills[u] = m
	}
	for k, v := range s.catalog {
		c.catalog[k] = v
	}
	return c
}

// checkDefaults mirrors the deferred one-default-resume constraint.
func (s *fakeState) checkDefaults() error {
	seen := map[uuid.UUID]bool{}
	for _, d := range s.docs {
		if !d.IsDefault {
			continue
		}
		if d.Type != db.DocTypeResume {
			return fmt.Errorf("non-resume document %s marked default", d.ID)
		}
		if seen[d.UserID] {
			return fmt.Errorf("%w: second default resume for %s", db.ErrConflict, d.UserID)
		}
		seen[d.UserID] = true
	}
	return nil
}

// fakeRegistry is an in-memory Registry. Each InTx works on a copy of the
// state that replaces the committed state only when fn succeeds.
type fakeRegistry struct {
	mu        sync.Mutex
	state     *fakeState
	fail      map[string]error
	commitErr error
	txCount   int
}

type fakeTxKey struct{}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{state: newFakeState(), fail: map[string]error{}}
}

// failOn makes the named RegistryTx method return err inside transactions.
func (r *fakeRegistry) failOn(method string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[method] = err
}

// failCommit makes every commit return err instead of applying the changes.
func (r *fakeRegistry) failCommit(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commitErr = err
}

func (r *fakeRegistry) InTx(ctx context.Context, fn func(ctx context.Context, tx RegistryTx) error) error {
	if ctx.Value(fakeTxKey{}) != nil {
		return db.ErrNestedTransaction
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txCount++

	tx := &fakeTx{reg: r, st: r.state.clone()}
	if err := fn(context.WithValue(ctx, fakeTxKey{}, true), tx); err != nil {
		return err
	}
	if r.commitErr != nil {
		return r.commitErr
	}
	if err := tx.st.checkDefaults(); err != nil {
		return err
	}
	r.state = tx.st
	return nil
}

func (r *fakeRegistry) committed() *fakeState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.clone()
}

// seedProfile commits a profile directly.
func (r *fakeRegistry) seedProfile(p db.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.profiles[p.UserID] = p
}

// seedDocument commits a document row directly.
func (r *fakeRegistry) seedDocument(d db.Document) db.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	r.state.docs = append(r.state.docs, d)
	return d
}

func (r *fakeRegistry) GetProfile(_ context.Context, userID uuid.UUID) (*db.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.state.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *fakeRegistry) GetDocument(_ context.Context, userID, documentID uuid.UUID) (*db.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.state.docs {
		if d.ID == documentID && d.UserID == userID {
			return &d, nil
		}
	}
	return nil, nil
}

func (r *fakeRegistry) ListDocuments(_ context.Context, userID uuid.UUID) ([]db.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []db.Document
	for _, d := range r.state.docs {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeRegistry) GetDefaultResume(_ context.Context, userID uuid.UUID) (*db.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.state.docs {
		if d.UserID == userID && d.Type == db.DocTypeResume && d.IsDefault {
			return &d, nil
		}
	}
	return nil, nil
}

func (r *fakeRegistry) ListSkills(_ context.Context, userID uuid.UUID) ([]db.Skill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []db.Skill
	for _, s := range r.state.userSkills[userID] {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NameNormalized < out[j].NameNormalized })
	return out, nil
}

type fakeTx struct {
	reg *fakeRegistry
	st  *fakeState
}

func (t *fakeTx) injected(method string) error {
	return t.reg.fail[method]
}

func (t *fakeTx) CreateProfile(_ context.Context, userID uuid.UUID) error {
	if err := t.injected("CreateProfile"); err != nil {
		return err
	}
	if _, ok := t.st.profiles[userID]; !ok {
		now := time.Now()
		t.st.profiles[userID] = db.Profile{UserID: userID, CreatedAt: now, UpdatedAt: now}
	}
	return nil
}

func (t *fakeTx) GetProfile(_ context.Context, userID uuid.UUID) (*db.Profile, error) {
	if err := t.injected("GetProfile"); err != nil {
		return nil, err
	}
	p, ok := t.st.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (t *fakeTx) UpdateProfile(_ context.Context, userID uuid.UUID, f db.ProfileFields) error {
	if err := t.injected("UpdateProfile"); err != nil {
		return err
	}
	p, ok := t.st.profiles[userID]
	if !ok {
		return db.ErrNotFound
	}
	p.JobTitle, p.Location = f.JobTitle, f.Location
	p.ShortSummary, p.ProfessionalSummary = f.ShortSummary, f.ProfessionalSummary
	p.YearsExperience, p.ExperienceLevel, p.Industry = f.YearsExperience, f.ExperienceLevel, f.Industry
	p.WebsiteURL, p.LinkedInURL, p.GitHubURL = f.WebsiteURL, f.LinkedInURL, f.GitHubURL
	p.UpdatedAt = time.Now()
	t.st.profiles[userID] = p
	return nil
}

func (t *fakeTx) SetProfileImage(_ context.Context, userID uuid.UUID, locator string) error {
	if err := t.injected("SetProfileImage"); err != nil {
		return err
	}
	p, ok := t.st.profiles[userID]
	if !ok {
		return db.ErrNotFound
	}
	if locator == "" {
		p.ImageLocator = nil
	} else {
		p.ImageLocator = &locator
	}
	t.st.profiles[userID] = p
	return nil
}

func (t *fakeTx) SetCompletionScore(_ context.Context, userID uuid.UUID, score int) error {
	if err := t.injected("SetCompletionScore"); err != nil {
		return err
	}
	p, ok := t.st.profiles[userID]
	if !ok {
		return db.ErrNotFound
	}
	p.CompletionScore = score
	t.st.profiles[userID] = p
	return nil
}

func (t *fakeTx) ScoreCounts(_ context.Context, userID uuid.UUID) (db.ScoreCounts, error) {
	if err := t.injected("ScoreCounts"); err != nil {
		return db.ScoreCounts{}, err
	}
	var c db.ScoreCounts
	for _, e := range t.st.experiences {
		if e.UserID == userID {
			c.Experiences++
		}
	}
	for _, e := range t.st.education {
		if e.UserID == userID {
			c.Education++
		}
	}
	c.Skills = len(t.st.userSkills[userID])
	for _, d := range t.st.docs {
		if d.UserID == userID && d.Type == db.DocTypeResume {
			c.Resumes++
		}
	}
	return c, nil
}

func (t *fakeTx) insert(userID uuid.UUID, in db.DocumentInput, isDefault bool) *db.Document {
	d := db.Document{
		ID:           uuid.New(),
		UserID:       userID,
		Type:         in.Type,
		OriginalName: in.OriginalName,
		Locator:      in.Locator,
		SizeBytes:    in.SizeBytes,
		ContentType:  in.ContentType,
		IsDefault:    isDefault,
		UploadedAt:   time.Now(),
	}
	t.st.docs = append(t.st.docs, d)
	return &d
}

func (t *fakeTx) clearOtherDefaults(userID, keep uuid.UUID) {
	for i := range t.st.docs {
		d := &t.st.docs[i]
		if d.UserID == userID && d.Type == db.DocTypeResume && d.ID != keep {
			d.IsDefault = false
		}
	}
}

func (t *fakeTx) RegisterResume(_ context.Context, userID uuid.UUID, in db.DocumentInput) (*db.Document, error) {
	if err := t.injected("RegisterResume"); err != nil {
		return nil, err
	}
	in.Type = db.DocTypeResume
	d := t.insert(userID, in, true)
	t.clearOtherDefaults(userID, d.ID)
	return d, nil
}

func (t *fakeTx) InsertDocument(_ context.Context, userID uuid.UUID, in db.DocumentInput) (*db.Document, error) {
	if err := t.injected("InsertDocument"); err != nil {
		return nil, err
	}
	if in.Type == db.DocTypeResume {
		return nil, fmt.Errorf("resumes must be registered with RegisterResume")
	}
	return t.insert(userID, in, false), nil
}

func (t *fakeTx) DeleteDocument(_ context.Context, userID, documentID uuid.UUID) (*db.Document, error) {
	if err := t.injected("DeleteDocument"); err != nil {
		return nil, err
	}
	for i, d := range t.st.docs {
		if d.ID == documentID && d.UserID == userID {
			t.st.docs = append(t.st.docs[:i:i], t.st.docs[i+1:]...)
			return &d, nil
		}
	}
	return nil, db.ErrNotFound
}

func (t *fakeTx) SetDefaultResume(_ context.Context, userID, documentID uuid.UUID) error {
	if err := t.injected("SetDefaultResume"); err != nil {
		return err
	}
	for i := range t.st.docs {
		d := &t.st.docs[i]
		if d.ID == documentID && d.UserID == userID && d.Type == db.DocTypeResume {
			d.IsDefault = true
			t.clearOtherDefaults(userID, documentID)
			return nil
		}
	}
	return db.ErrNotFound
}

func (t *fakeTx) AddExperience(_ context.Context, userID uuid.UUID, in db.ExperienceInput) (*db.Experience, error) {
	if err := t.injected("AddExperience"); err != nil {
		return nil, err
	}
	e := db.Experience{ID: uuid.New(), UserID: userID, Company: in.Company, RoleTitle: in.RoleTitle,
		StartDate: in.StartDate, EndDate: in.EndDate, CreatedAt: time.Now()}
	t.st.experiences[e.ID] = e
	return &e, nil
}

func (t *fakeTx) DeleteExperience(_ context.Context, userID, id uuid.UUID) error {
	if e, ok := t.st.experiences[id]; !ok || e.UserID != userID {
		return db.ErrNotFound
	}
	delete(t.st.experiences, id)
	return nil
}

func (t *fakeTx) AddEducation(_ context.Context, userID uuid.UUID, in db.EducationInput) (*db.Education, error) {
	if err := t.injected("AddEducation"); err != nil {
		return nil, err
	}
	e := db.Education{ID: uuid.New(), UserID: userID, School: in.School, DegreeType: in.DegreeType,
		Field: in.Field, StartDate: in.StartDate, EndDate: in.EndDate, CreatedAt: time.Now()}
	t.st.education[e.ID] = e
	return &e, nil
}

func (t *fakeTx) DeleteEducation(_ context.Context, userID, id uuid.UUID) error {
	if e, ok := t.st.education[id]; !ok || e.UserID != userID {
		return db.ErrNotFound
	}
	delete(t.st.education, id)
	return nil
}

func (t *fakeTx) AssignSkill(_ context.Context, userID uuid.UUID, skillName string) (*db.Skill, error) {
	if err := t.injected("AssignSkill"); err != nil {
		return nil, err
	}
	normalized := db.NormalizeSkillName(skillName)
	s, ok := t.st.catalog[normalized]
	if !ok {
		s = db.Skill{ID: uuid.New(), Name: skillName, NameNormalized: normalized}
		t.st.catalog[normalized] = s
	}
	if t.st.userSkills[userID] == nil {
		t.st.userSkills[userID] = map[uuid.UUID]db.Skill{}
	}
	t.st.userSkills[userID][s.ID] = s
	return &s, nil
}

func (t *fakeTx) UnassignSkill(_ context.Context, userID, skillID uuid.UUID) error {
	if _, ok := t.st.userSkills[userID][skillID]; !ok {
		return db.ErrNotFound
	}
	delete(t.st.userSkills[userID], skillID)
	return nil
}

var (
	_ Registry   = (*fakeRegistry)(nil)
	_ RegistryTx = (*fakeTx)(nil)
)

package devserver

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"novel-client/internal/models"
)

type storyTypeRecord struct {
	detail    models.StoryTypeDetail
	promptIDs []string
}

type promptRecord struct {
	models.PromptSimple
	systemPrompt string
}

type userStoryRecord struct {
	detail models.SessionDetail
}

// storyContext - данные шаблона и типа, нужные для генерации хода.
type storyContext struct {
	StoryTypeID         string
	BaseTitle           string
	Language            string
	OriginalTaleContext string
}

// Store - in-memory хранилище devserver. Все методы возвращают копии.
type Store struct {
	mu          sync.RWMutex
	storyTypes  map[string]*storyTypeRecord
	prompts     map[string]*promptRecord
	baseStories map[string]*models.BaseStoryDetail
	stories     map[string]*userStoryRecord
	now         func() time.Time
}

func NewStore() *Store {
	return &Store{
		storyTypes:  make(map[string]*storyTypeRecord),
		prompts:     make(map[string]*promptRecord),
		baseStories: make(map[string]*models.BaseStoryDetail),
		stories:     make(map[string]*userStoryRecord),
		now:         time.Now,
	}
}

func (s *Store) timestamp() models.Timestamp {
	return models.NewTimestamp(s.now())
}

// --- Типы историй ---

func (s *Store) CreateStoryType(in models.StoryTypeInput) models.StoryTypeDetail {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.timestamp()
	rec := &storyTypeRecord{detail: models.StoryTypeDetail{
		ID:             uuid.NewString(),
		StoryTypeInput: in,
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}}
	s.storyTypes[rec.detail.ID] = rec
	return s.storyTypeDetailLocked(rec)
}

func (s *Store) ListStoryTypes() []models.StoryTypeBasic {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.StoryTypeBasic, 0, len(s.storyTypes))
	for _, rec := range s.storyTypes {
		out = append(out, models.StoryTypeBasic{ID: rec.detail.ID, Name: rec.detail.Name, Description: rec.detail.Description})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Store) GetStoryType(id string) (models.StoryTypeDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.storyTypes[id]
	if !ok {
		return models.StoryTypeDetail{}, notFound("Story Type not found")
	}
	return s.storyTypeDetailLocked(rec), nil
}

func (s *Store) UpdateStoryType(id string, in models.StoryTypeInput) (models.StoryTypeDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.storyTypes[id]
	if !ok {
		return models.StoryTypeDetail{}, notFound("Story Type not found")
	}
	rec.detail.StoryTypeInput = in
	rec.detail.UpdatedAt = s.timestamp()
	return s.storyTypeDetailLocked(rec), nil
}

// DeleteStoryType удаляет тип, если от него не зависят шаблоны.
func (s *Store) DeleteStoryType(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dependents := 0
	for _, bs := range s.baseStories {
		if bs.StoryTypeID == id {
			dependents++
		}
	}
	if dependents > 0 {
		return conflict("Cannot delete StoryType %s: %d BaseStories depend on it.", id, dependents)
	}
	if _, ok := s.storyTypes[id]; !ok {
		return notFound("StoryType %s not found for deletion.", id)
	}
	delete(s.storyTypes, id)
	return nil
}

func (s *Store) storyTypeDetailLocked(rec *storyTypeRecord) models.StoryTypeDetail {
	out := rec.detail
	out.StoryPrompts = make([]models.PromptSimple, 0, len(rec.promptIDs))
	for _, pid := range rec.promptIDs {
		if p, ok := s.prompts[pid]; ok {
			out.StoryPrompts = append(out.StoryPrompts, clonePrompt(p.PromptSimple))
		}
	}
	return out
}

// --- Промпты ---

func (s *Store) CreatePrompt(in models.PromptInput) models.PromptSimple {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &promptRecord{
		PromptSimple: models.PromptSimple{
			ID:        uuid.NewString(),
			Name:      in.Name,
			TurnStart: in.TurnStart,
			TurnEnd:   cloneInt(in.TurnEnd),
		},
		systemPrompt: in.SystemPrompt,
	}
	s.prompts[rec.ID] = rec
	return clonePrompt(rec.PromptSimple)
}

func (s *Store) ListPrompts() []models.PromptSimple {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.PromptSimple, 0, len(s.prompts))
	for _, p := range s.prompts {
		out = append(out, clonePrompt(p.PromptSimple))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TurnStart != out[j].TurnStart {
			return out[i].TurnStart < out[j].TurnStart
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// DeletePrompt удаляет промпт вместе с его назначениями.
func (s *Store) DeletePrompt(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.prompts[id]; !ok {
		return notFound("StoryPrompt with ID %s not found for deletion.", id)
	}
	delete(s.prompts, id)
	for _, st := range s.storyTypes {
		st.promptIDs = removeID(st.promptIDs, id)
	}
	return nil
}

func (s *Store) AssignPrompt(promptID, storyTypeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, okType := s.storyTypes[storyTypeID]
	_, okPrompt := s.prompts[promptID]
	if !okType || !okPrompt || containsID(st.promptIDs, promptID) {
		return badRequest("Failed to assign prompt. Check if prompt and story type exist and are not already linked.")
	}
	st.promptIDs = append(st.promptIDs, promptID)
	return nil
}

func (s *Store) RemovePrompt(storyTypeID, promptID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.storyTypes[storyTypeID]
	if !ok || !containsID(st.promptIDs, promptID) {
		return badRequest("Failed to remove prompt assignment. Check if the assignment exists.")
	}
	st.promptIDs = removeID(st.promptIDs, promptID)
	return nil
}

// PromptForTurn выбирает назначенный типу промпт, окно [turn_start, turn_end] которого покрывает ход.
// При нескольких подходящих побеждает больший turn_start.
func (s *Store) PromptForTurn(storyTypeID string, turn int) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.storyTypes[storyTypeID]
	if !ok {
		return "", false
	}
	var best *promptRecord
	for _, pid := range st.promptIDs {
		p, ok := s.prompts[pid]
		if !ok || p.TurnStart > turn || (p.TurnEnd != nil && *p.TurnEnd < turn) {
			continue
		}
		if best == nil || p.TurnStart > best.TurnStart || (p.TurnStart == best.TurnStart && p.ID < best.ID) {
			best = p
		}
	}
	if best == nil {
		return "", false
	}
	return best.systemPrompt, true
}

// SummaryPrompt возвращает summary_prompt типа истории.
func (s *Store) SummaryPrompt(storyTypeID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.storyTypes[storyTypeID]
	if !ok {
		return "", false
	}
	return st.detail.SummaryPrompt, true
}

// --- Шаблоны ---

func (s *Store) CreateBaseStory(in models.BaseStoryInput) (models.BaseStoryRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.storyTypes[in.StoryTypeID]; !ok {
		return models.BaseStoryRef{}, badRequest("Invalid Story Type ID: %s or other creation error.", in.StoryTypeID)
	}
	ts := s.timestamp()
	bs := &models.BaseStoryDetail{
		ID:        uuid.NewString(),
		IsActive:  true,
		CreatedAt: ts,
	}
	applyBaseStoryInput(bs, in, ts)
	s.baseStories[bs.ID] = bs
	return baseStoryRef(bs), nil
}

func (s *Store) GetBaseStory(id string) (models.BaseStoryDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bs, ok := s.baseStories[id]
	if !ok {
		return models.BaseStoryDetail{}, notFound("Base story with ID %s not found", id)
	}
	out := *bs
	if st, ok := s.storyTypes[bs.StoryTypeID]; ok {
		out.StoryType = &models.StoryTypeRef{ID: st.detail.ID, Name: st.detail.Name}
	}
	return out, nil
}

func (s *Store) UpdateBaseStory(id string, in models.BaseStoryInput) (models.BaseStoryRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bs, ok := s.baseStories[id]
	if !ok {
		return models.BaseStoryRef{}, notFound("Base Story not found")
	}
	if _, ok := s.storyTypes[in.StoryTypeID]; !ok {
		return models.BaseStoryRef{}, badRequest("Invalid Story Type ID: %s", in.StoryTypeID)
	}
	applyBaseStoryInput(bs, in, s.timestamp())
	return baseStoryRef(bs), nil
}

// DeleteBaseStory удаляет шаблон, если по нему нет историй пользователей.
func (s *Store) DeleteBaseStory(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dependents := 0
	for _, us := range s.stories {
		if us.detail.BaseStoryID == id {
			dependents++
		}
	}
	if dependents > 0 {
		return conflict("Cannot delete BaseStory %s: %d user stories depend on it.", id, dependents)
	}
	if _, ok := s.baseStories[id]; !ok {
		return notFound("BaseStory with ID %s not found for deletion.", id)
	}
	delete(s.baseStories, id)
	return nil
}

func (s *Store) SetBaseStoryActive(id string, active bool) (models.ToggleResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bs, ok := s.baseStories[id]
	if !ok {
		return models.ToggleResponse{}, notFound("Base story with ID %s not found", id)
	}
	bs.IsActive = active
	bs.UpdatedAt = s.timestamp()
	return models.ToggleResponse{ID: id, IsActive: active, Success: true}, nil
}

// ListTemplates возвращает активные шаблоны, отсортированные по названию.
func (s *Store) ListTemplates() []models.Template {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Template, 0, len(s.baseStories))
	for _, bs := range s.baseStories {
		if !bs.IsActive {
			continue
		}
		typeName := "Unknown Type"
		if st, ok := s.storyTypes[bs.StoryTypeID]; ok {
			typeName = st.detail.Name
		}
		out = append(out, models.Template{
			ID:            bs.ID,
			Title:         bs.Title,
			Description:   bs.Description,
			Language:      bs.Language,
			IsActive:      bs.IsActive,
			StoryTypeName: typeName,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

func applyBaseStoryInput(bs *models.BaseStoryDetail, in models.BaseStoryInput, ts models.Timestamp) {
	bs.StoryTypeID = in.StoryTypeID
	bs.Title = in.Title
	bs.Description = in.Description
	bs.OriginalTaleContext = in.OriginalTaleContext
	bs.InitialSystemPrompt = in.InitialSystemPrompt
	bs.InitialSummary = in.InitialSummary
	bs.Language = in.Language
	bs.UpdatedAt = ts
}

func baseStoryRef(bs *models.BaseStoryDetail) models.BaseStoryRef {
	return models.BaseStoryRef{
		ID:          bs.ID,
		Title:       bs.Title,
		Description: bs.Description,
		StoryTypeID: bs.StoryTypeID,
		Success:     true,
	}
}

// --- Истории пользователей ---

// CreateUserStory создает историю по шаблону. Пустой title заменяется на "<шаблон>'s Adventure".
func (s *Store) CreateUserStory(userID, baseStoryID string, title *string) (models.SessionDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bs, ok := s.baseStories[baseStoryID]
	if !ok {
		return models.SessionDetail{}, notFound("Base story with ID %s not found", baseStoryID)
	}
	storyTitle := bs.Title + "'s Adventure"
	if title != nil && *title != "" {
		storyTitle = *title
	}
	ts := s.timestamp()
	rec := &userStoryRecord{
		detail: models.SessionDetail{
			ID:             uuid.NewString(),
			Title:          storyTitle,
			UserID:         userID,
			BaseStoryID:    bs.ID,
			BaseStoryTitle: bs.Title,
			StoryTypeID:    bs.StoryTypeID,
			CurrentSummary: bs.InitialSummary,
			StoryMessages:  []models.StoryMessage{},
			LastChoices:    []string{},
			CreatedAt:      ts,
			UpdatedAt:      ts,
		},
	}
	if st, ok := s.storyTypes[bs.StoryTypeID]; ok {
		rec.detail.StoryTypeName = st.detail.Name
	}
	s.stories[rec.detail.ID] = rec
	return cloneSession(rec.detail), nil
}

// ListUserStories возвращает истории пользователя, свежие первыми.
func (s *Store) ListUserStories(userID string, includeCompleted bool) []models.SessionMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.SessionMetadata, 0)
	for _, rec := range s.stories {
		d := rec.detail
		if d.UserID != userID || (d.IsCompleted && !includeCompleted) {
			continue
		}
		out = append(out, models.SessionMetadata{
			ID:                d.ID,
			Title:             d.Title,
			CurrentTurnNumber: d.CurrentTurnNumber,
			BaseStoryTitle:    d.BaseStoryTitle,
			IsCompleted:       d.IsCompleted,
			UpdatedAt:         d.UpdatedAt,
			CreatedAt:         d.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt.Time) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) GetUserStory(id string) (models.SessionDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.stories[id]
	if !ok {
		return models.SessionDetail{}, notFound("Story %s not found", id)
	}
	return cloneSession(rec.detail), nil
}

// UpdateUserStory применяет fn к истории под блокировкой. Если fn вернул ошибку, изменения не сохраняются.
func (s *Store) UpdateUserStory(id string, fn func(*models.SessionDetail) error) (models.SessionDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.stories[id]
	if !ok {
		return models.SessionDetail{}, notFound("Story %s not found", id)
	}
	draft := cloneSession(rec.detail)
	if err := fn(&draft); err != nil {
		return models.SessionDetail{}, err
	}
	draft.UpdatedAt = s.timestamp()
	rec.detail = draft
	return cloneSession(draft), nil
}

// StoryContext возвращает шаблон и тип, на которых основана история.
func (s *Store) StoryContext(baseStoryID string) (storyContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bs, ok := s.baseStories[baseStoryID]
	if !ok {
		return storyContext{}, &detailError{kind: ErrStoryConfiguration, detail: "Story data is inconsistent (missing base story)."}
	}
	if _, ok := s.storyTypes[bs.StoryTypeID]; !ok {
		return storyContext{}, &detailError{kind: ErrStoryConfiguration, detail: "Story data is inconsistent (missing story type)."}
	}
	return storyContext{
		StoryTypeID:         bs.StoryTypeID,
		BaseTitle:           bs.Title,
		Language:            bs.Language,
		OriginalTaleContext: bs.OriginalTaleContext,
	}, nil
}

func cloneSession(d models.SessionDetail) models.SessionDetail {
	d.StoryMessages = append([]models.StoryMessage(nil), d.StoryMessages...)
	d.LastChoices = append([]string(nil), d.LastChoices...)
	if d.StoryMessages == nil {
		d.StoryMessages = []models.StoryMessage{}
	}
	if d.LastChoices == nil {
		d.LastChoices = []string{}
	}
	return d
}

func clonePrompt(p models.PromptSimple) models.PromptSimple {
	p.TurnEnd = cloneInt(p.TurnEnd)
	return p
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

package kanban_services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"siteboard/internal/model/auth_model"
	"siteboard/internal/model/kanban_model"
	"siteboard/internal/model/project_model"
	"siteboard/internal/repository/kanban_repository"
)

// memoryStore implements every store interface the engine drives, with
// the same contract the sqlx repositories honor. Shared by the unit and
// property tests in this package.
type memoryStore struct {
	mu         sync.Mutex
	seq        int
	boards     map[string]*kanban_model.Board // keyed by project id
	columns    map[string]*kanban_model.Column
	items      map[string]*kanban_model.Item
	comments   []*kanban_model.Comment
	history    []*kanban_model.HistoryEntry
	categories map[int]*kanban_model.Category

	// conflictsLeft makes the next N item mutations fail with
	// ErrConflict, for retry tests.
	conflictsLeft int

	now func() time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		boards:     make(map[string]*kanban_model.Board),
		columns:    make(map[string]*kanban_model.Column),
		items:      make(map[string]*kanban_model.Item),
		categories: make(map[int]*kanban_model.Category),
		now:        time.Now,
	}
}

func (m *memoryStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memoryStore) takeConflict() bool {
	if m.conflictsLeft > 0 {
		m.conflictsLeft--
		return true
	}
	return false
}

func copyItem(item *kanban_model.Item) *kanban_model.Item {
	dup := *item
	return &dup
}

// --- BoardStore ---

func (m *memoryStore) GetOrCreateBoard(_ context.Context, projectID string, actorID int) (*kanban_model.Board, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if board, ok := m.boards[projectID]; ok {
		return board, false, nil
	}
	board := &kanban_model.Board{
		ID:        m.nextID("board"),
		ProjectID: projectID,
		CreatedBy: actorID,
		CreatedAt: m.now(),
		UpdatedAt: m.now(),
	}
	m.boards[projectID] = board
	for _, seed := range kanban_model.DefaultColumns {
		col := &kanban_model.Column{
			ID:       m.nextID("col"),
			BoardID:  board.ID,
			Name:     seed.Name,
			Type:     seed.Type,
			Position: seed.Position,
			Color:    seed.Color,
			IsActive: true,
		}
		m.columns[col.ID] = col
	}
	return board, true, nil
}

func (m *memoryStore) BoardByProject(_ context.Context, projectID string) (*kanban_model.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	board, ok := m.boards[projectID]
	if !ok {
		return nil, kanban_repository.ErrBoardNotFound
	}
	return board, nil
}

func (m *memoryStore) EnsureColumn(_ context.Context, boardID string, colType kanban_model.ColumnType, name string) (*kanban_model.Column, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	maxPos := -1
	for _, col := range m.columns {
		if col.BoardID != boardID || !col.IsActive {
			continue
		}
		if col.Type == colType {
			return col, nil
		}
		if col.Position > maxPos {
			maxPos = col.Position
		}
	}
	col := &kanban_model.Column{
		ID:       m.nextID("col"),
		BoardID:  boardID,
		Name:     name,
		Type:     colType,
		Position: maxPos + 1,
		Color:    "#f8f9fa",
		IsActive: true,
	}
	m.columns[col.ID] = col
	return col, nil
}

func (m *memoryStore) ColumnByID(_ context.Context, columnID string) (*kanban_model.Column, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	col, ok := m.columns[columnID]
	if !ok {
		return nil, kanban_repository.ErrColumnNotFound
	}
	return col, nil
}

func (m *memoryStore) activeColumns(boardID string) []*kanban_model.Column {
	var cols []*kanban_model.Column
	for _, col := range m.columns {
		if col.BoardID == boardID && col.IsActive {
			cols = append(cols, col)
		}
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].Position < cols[j].Position })
	return cols
}

func (m *memoryStore) FirstActiveColumn(_ context.Context, boardID string) (*kanban_model.Column, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cols := m.activeColumns(boardID)
	if len(cols) == 0 {
		return nil, kanban_repository.ErrNoActiveColumn
	}
	return cols[0], nil
}

func (m *memoryStore) BoardView(_ context.Context, board *kanban_model.Board) (*kanban_model.BoardView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	view := &kanban_model.BoardView{Board: board}
	for _, col := range m.activeColumns(board.ID) {
		cwi := &kanban_model.ColumnWithItems{Column: *col}
		for _, item := range m.items {
			if item.ColumnID == col.ID {
				cwi.Items = append(cwi.Items, copyItem(item))
			}
		}
		sort.Slice(cwi.Items, func(i, j int) bool { return cwi.Items[i].Position < cwi.Items[j].Position })
		view.Columns = append(view.Columns, cwi)
	}

	for _, item := range m.items {
		if item.ProjectID != board.ProjectID {
			continue
		}
		view.Stats.TotalCount++
		view.Stats.TotalHours += item.EstimatedHours
		switch item.Status {
		case kanban_model.StatusNew:
			view.Stats.NewCount++
		case kanban_model.StatusInProgress:
			view.Stats.InProgressCount++
		case kanban_model.StatusDone:
			view.Stats.CompletedCount++
			view.Stats.CompletedHours += item.EstimatedHours
		}
	}
	if view.Stats.TotalCount > 0 {
		view.Stats.CompletionPercent = float64(view.Stats.CompletedCount) / float64(view.Stats.TotalCount) * 100
	}
	return view, nil
}

// --- ItemStore ---

func (m *memoryStore) CreateItem(_ context.Context, in *kanban_repository.NewItem) (*kanban_model.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.takeConflict() {
		return nil, kanban_repository.ErrConflict
	}
	col, ok := m.columns[in.ColumnID]
	if !ok {
		return nil, kanban_repository.ErrColumnNotFound
	}

	position := 0
	for _, item := range m.items {
		if item.ColumnID == in.ColumnID && item.Position >= position {
			position = item.Position + 1
		}
	}

	item := &kanban_model.Item{
		ID:             m.nextID("item"),
		ProjectID:      in.ProjectID,
		ColumnID:       in.ColumnID,
		CategoryID:     in.CategoryID,
		Title:          in.Title,
		Description:    in.Description,
		TaskType:       in.TaskType,
		EstimatedHours: in.EstimatedHours,
		Amount:         in.Amount,
		Status:         kanban_model.StatusForColumn(col.Type),
		Priority:       in.Priority,
		IsUrgent:       in.IsUrgent,
		Tags:           in.Tags,
		DueDate:        in.DueDate,
		Position:       position,
		CreatedBy:      in.ActorID,
		CreatedAt:      m.now(),
		UpdatedAt:      m.now(),
	}
	m.items[item.ID] = item
	m.appendHistory(item.ID, in.ActorID, kanban_model.ActionCreated, "", "",
		fmt.Sprintf("Expense item created, amount %.2f", item.Amount))
	return copyItem(item), nil
}

func (m *memoryStore) ItemByID(_ context.Context, itemID string) (*kanban_model.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok {
		return nil, kanban_repository.ErrItemNotFound
	}
	return copyItem(item), nil
}

func (m *memoryStore) MoveItem(_ context.Context, itemID, targetColumnID string, position, actorID int) (*kanban_repository.MoveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.takeConflict() {
		return nil, kanban_repository.ErrConflict
	}
	return m.moveLocked(itemID, targetColumnID, &position, actorID)
}

func (m *memoryStore) moveLocked(itemID, targetColumnID string, position *int, actorID int) (*kanban_repository.MoveResult, error) {
	item, ok := m.items[itemID]
	if !ok {
		return nil, kanban_repository.ErrItemNotFound
	}
	target, ok := m.columns[targetColumnID]
	if !ok {
		return nil, kanban_repository.ErrColumnNotFound
	}
	oldColumn := m.columns[item.ColumnID]

	newPosition := 0
	if position != nil {
		newPosition = *position
	} else {
		for _, other := range m.items {
			if other.ColumnID == targetColumnID && other.Position >= newPosition {
				newPosition = other.Position + 1
			}
		}
	}

	oldStatus := item.Status
	newStatus := kanban_model.StatusForColumn(target.Type)

	item.ColumnID = target.ID
	item.Position = newPosition
	item.Status = newStatus
	item.UpdatedAt = m.now()

	m.appendHistory(itemID, actorID, kanban_model.ActionMoved, "column", oldColumn.Name, target.Name)

	res := &kanban_repository.MoveResult{
		OldColumnName: oldColumn.Name,
		NewColumnName: target.Name,
		OldStatus:     oldStatus,
		NewStatus:     newStatus,
	}
	if newStatus == kanban_model.StatusApproved && oldStatus != kanban_model.StatusApproved {
		now := m.now()
		item.ApprovedBy = &actorID
		item.ApprovedAt = &now
		res.Approved = true
	}
	res.Item = copyItem(item)
	return res, nil
}

func (m *memoryStore) RejectItem(_ context.Context, itemID string, actorID int, reason string) (*kanban_repository.MoveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.takeConflict() {
		return nil, kanban_repository.ErrConflict
	}

	item, ok := m.items[itemID]
	if !ok {
		return nil, kanban_repository.ErrItemNotFound
	}
	board, ok := m.boards[item.ProjectID]
	if !ok {
		return nil, kanban_repository.ErrBoardNotFound
	}

	var rejected *kanban_model.Column
	for _, col := range m.activeColumns(board.ID) {
		if col.Type == kanban_model.ColumnRejected {
			rejected = col
			break
		}
	}
	if rejected == nil {
		return nil, kanban_repository.ErrRejectedColumnMissing
	}

	res, err := m.moveLocked(itemID, rejected.ID, nil, actorID)
	if err != nil {
		return nil, err
	}

	item.RejectionReason = reason
	m.appendHistory(itemID, actorID, kanban_model.ActionRejected, "rejection_reason", "", reason)
	m.comments = append(m.comments, &kanban_model.Comment{
		ID:         m.nextID("comment"),
		ItemID:     itemID,
		AuthorID:   actorID,
		Text:       fmt.Sprintf("Expense rejected. Reason: %s", reason),
		IsInternal: true,
		CreatedAt:  m.now(),
	})
	res.Item = copyItem(item)
	return res, nil
}

func (m *memoryStore) UpdateItem(_ context.Context, itemID string, changes kanban_repository.ItemChanges, actorID int) (*kanban_model.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.takeConflict() {
		return nil, kanban_repository.ErrConflict
	}
	item, ok := m.items[itemID]
	if !ok {
		return nil, kanban_repository.ErrItemNotFound
	}

	oldAmount := item.Amount
	if changes.Title != nil {
		item.Title = *changes.Title
	}
	if changes.Description != nil {
		item.Description = *changes.Description
	}
	if changes.TaskType != nil {
		item.TaskType = *changes.TaskType
	}
	if changes.EstimatedHours != nil {
		item.EstimatedHours = *changes.EstimatedHours
	}
	if changes.Amount != nil {
		item.Amount = *changes.Amount
	}
	if changes.Priority != nil {
		item.Priority = *changes.Priority
	}
	if changes.IsUrgent != nil {
		item.IsUrgent = *changes.IsUrgent
	}
	if changes.Tags != nil {
		item.Tags = *changes.Tags
	}
	if changes.DueDate != nil {
		item.DueDate = changes.DueDate
	}
	if changes.ProgressPercent != nil {
		item.ProgressPercent = *changes.ProgressPercent
	}
	if changes.CategoryID != nil {
		item.CategoryID = changes.CategoryID
	}
	if changes.AssignedTo != nil {
		item.AssignedTo = changes.AssignedTo
	}
	item.UpdatedAt = m.now()

	if item.Amount != oldAmount {
		m.appendHistory(itemID, actorID, kanban_model.ActionUpdated, "amount",
			fmt.Sprintf("%.2f", oldAmount), fmt.Sprintf("%.2f", item.Amount))
	}
	return copyItem(item), nil
}

func (m *memoryStore) ProjectAnalytics(_ context.Context, projectID string) (*kanban_repository.Analytics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a := &kanban_repository.Analytics{}
	byType := make(map[string]*kanban_repository.AnalyticsRow)
	byStatus := make(map[string]*kanban_repository.AnalyticsRow)
	byCategory := make(map[string]*kanban_repository.AnalyticsRow)
	for _, item := range m.items {
		if item.ProjectID != projectID {
			continue
		}
		t, ok := byType[string(item.TaskType)]
		if !ok {
			t = &kanban_repository.AnalyticsRow{Key: string(item.TaskType)}
			byType[string(item.TaskType)] = t
			a.ByTaskType = append(a.ByTaskType, t)
		}
		t.TotalAmount += item.Amount
		t.Count++

		s, ok := byStatus[string(item.Status)]
		if !ok {
			s = &kanban_repository.AnalyticsRow{Key: string(item.Status)}
			byStatus[string(item.Status)] = s
			a.ByStatus = append(a.ByStatus, s)
		}
		s.TotalAmount += item.Amount
		s.Count++

		// Uncategorized items stay out of the category breakdown, like
		// the inner join in the production query.
		if item.CategoryID == nil {
			continue
		}
		cat, ok := m.categories[*item.CategoryID]
		if !ok {
			continue
		}
		c, ok := byCategory[cat.Name]
		if !ok {
			c = &kanban_repository.AnalyticsRow{Key: cat.Name, Color: cat.Color}
			byCategory[cat.Name] = c
			a.ByCategory = append(a.ByCategory, c)
		}
		c.TotalAmount += item.Amount
		c.Count++
	}
	return a, nil
}

// --- CommentStore ---

func (m *memoryStore) AddComment(_ context.Context, itemID string, authorID int, text string, isInternal bool) (*kanban_model.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[itemID]; !ok {
		return nil, kanban_repository.ErrItemNotFound
	}
	comment := &kanban_model.Comment{
		ID:         m.nextID("comment"),
		ItemID:     itemID,
		AuthorID:   authorID,
		Text:       text,
		IsInternal: isInternal,
		CreatedAt:  m.now(),
		UpdatedAt:  m.now(),
	}
	m.comments = append(m.comments, comment)
	return comment, nil
}

func (m *memoryStore) ListByItem(_ context.Context, itemID string) ([]*kanban_model.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*kanban_model.Comment
	for _, c := range m.comments {
		if c.ItemID == itemID {
			out = append(out, c)
		}
	}
	return out, nil
}

// --- HistoryStore ---

func (m *memoryStore) appendHistory(itemID string, userID int, action, field, oldValue, newValue string) {
	m.history = append(m.history, &kanban_model.HistoryEntry{
		ID:        int64(len(m.history) + 1),
		ItemID:    itemID,
		UserID:    userID,
		Action:    action,
		FieldName: field,
		OldValue:  oldValue,
		NewValue:  newValue,
		CreatedAt: m.now(),
	})
}

// historyFor returns all entries for the item, oldest first.
func (m *memoryStore) historyFor(itemID string) []*kanban_model.HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*kanban_model.HistoryEntry
	for _, e := range m.history {
		if e.ItemID == itemID {
			out = append(out, e)
		}
	}
	return out
}

func (m *memoryStore) ListByItemHistory(itemID string, limit int) []*kanban_model.HistoryEntry {
	entries := m.historyFor(itemID)
	// newest first
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID > entries[j].ID })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// historyLister adapts memoryStore to HistoryStore.
type historyLister struct{ store *memoryStore }

func (h historyLister) ListByItem(_ context.Context, itemID string, limit int) ([]*kanban_model.HistoryEntry, error) {
	return h.store.ListByItemHistory(itemID, limit), nil
}

// --- CategoryStore ---

func (m *memoryStore) CategoryByID(_ context.Context, id int) (*kanban_model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cat, ok := m.categories[id]
	if !ok {
		return nil, kanban_repository.ErrCategoryNotFound
	}
	return cat, nil
}

func (m *memoryStore) ListActive(_ context.Context) ([]*kanban_model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*kanban_model.Category
	for _, cat := range m.categories {
		if cat.IsActive {
			out = append(out, cat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// --- AccessChecker / ActivitySink fakes ---

type fakeAccess struct {
	mu   sync.Mutex
	caps map[int]project_model.Capabilities // keyed by actor id
	err  error
}

func newFakeAccess() *fakeAccess {
	return &fakeAccess{caps: make(map[int]project_model.Capabilities)}
}

func (f *fakeAccess) grant(actorID int, caps project_model.Capabilities) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.caps[actorID] = caps
}

func allCaps() project_model.Capabilities {
	return project_model.Capabilities{
		CanView: true, CanAddItems: true, CanManageBoard: true,
		CanApprove: true, CanReject: true,
	}
}

func (f *fakeAccess) Capabilities(_ context.Context, actor auth_model.Actor, _ string) (project_model.Capabilities, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return project_model.Capabilities{}, f.err
	}
	return f.caps[actor.ID], nil
}

type recordedActivity struct {
	ProjectID    string
	ActorID      int
	ActivityType string
	Description  string
}

type recordingSink struct {
	mu         sync.Mutex
	activities []recordedActivity
	err        error
}

func (s *recordingSink) EmitActivity(_ context.Context, projectID string, actorID int, activityType, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.activities = append(s.activities, recordedActivity{projectID, actorID, activityType, description})
	return nil
}

func (s *recordingSink) byType(activityType string) []recordedActivity {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []recordedActivity
	for _, a := range s.activities {
		if a.ActivityType == activityType {
			out = append(out, a)
		}
	}
	return out
}

// --- shared fixture ---

type fixture struct {
	store  *memoryStore
	access *fakeAccess
	sink   *recordingSink
	items  *ItemService
	boards *BoardService
}

func newFixture() *fixture {
	store := newMemoryStore()
	access := newFakeAccess()
	sink := &recordingSink{}
	return &fixture{
		store:  store,
		access: access,
		sink:   sink,
		items:  NewItemService(store, store, store, historyLister{store}, store, access, sink),
		boards: NewBoardService(store, access),
	}
}

// columnOfType finds an active column of the given type on the
// project's board. Returns nil when there is none.
func (f *fixture) columnOfType(projectID string, colType kanban_model.ColumnType) *kanban_model.Column {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	board, ok := f.store.boards[projectID]
	if !ok {
		return nil
	}
	for _, col := range f.store.activeColumns(board.ID) {
		if col.Type == colType {
			return col
		}
	}
	return nil
}

var errSinkDown = errors.New("activity sink unavailable")

package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"marathon-service/internal/domain"
)

// BoardRepository abstracts how marathon boards are stored (in-memory, Redis, etc).
type BoardRepository interface {
	GetOrCreate(marathonID string) *Board
	Get(marathonID string) (*Board, bool)
}

// CatalogRepository loads the reading catalog (from cache/backing store).
type CatalogRepository interface {
	Catalog(ctx context.Context) ([]domain.Reading, error)
}

// MarathonService contains the core marathon use cases: roster, submission
// ledger, rankings, and events.
type MarathonService struct {
	boards  BoardRepository
	catalog CatalogRepository
}

func NewMarathonService(boards BoardRepository, catalog CatalogRepository) *MarathonService {
	return &MarathonService{boards: boards, catalog: catalog}
}

// NewBoard is exported for infrastructure layers that need to seed boards.
func NewBoard(id string) *Board {
	return newBoardWithClock(id, time.Now)
}

// NewBoardWithClock is test-only for deterministic dates and timestamps.
func NewBoardWithClock(id string, now func() time.Time) *Board {
	return newBoardWithClock(id, now)
}

// Join registers a participant, or refreshes name and group for a returning
// one. An empty userID asks the board to mint an id.
func (s *MarathonService) Join(_ context.Context, marathonID, userID, name, group string) (domain.User, domain.Leaderboard, error) {
	board := s.boards.GetOrCreate(marathonID)
	user, lb := board.join(userID, name, group)
	return user, lb, nil
}

// MarkComplete records a one-time completion of a reading, scores it against
// today's date, and bumps the user's total. A second attempt for the same
// (user, reading) pair fails with ErrAlreadySubmitted and changes nothing.
func (s *MarathonService) MarkComplete(ctx context.Context, marathonID, userID, readingID, chosenOptionID string) (domain.CompletionResult, domain.Leaderboard, error) {
	board, ok := s.boards.Get(marathonID)
	if !ok {
		return domain.CompletionResult{}, domain.Leaderboard{}, domain.ErrBoardNotFound
	}
	reading, err := s.findReading(ctx, readingID)
	if err != nil {
		return domain.CompletionResult{}, domain.Leaderboard{}, err
	}
	return board.markComplete(reading, userID, chosenOptionID)
}

// Individuals returns the participant leaderboard, freshly computed.
func (s *MarathonService) Individuals(_ context.Context, marathonID string) (domain.Leaderboard, error) {
	board, ok := s.boards.Get(marathonID)
	if !ok {
		return domain.Leaderboard{}, domain.ErrBoardNotFound
	}
	return board.leaderboard(), nil
}

// GroupStandings sums participant scores per group and ranks the groups.
func (s *MarathonService) GroupStandings(_ context.Context, marathonID string) ([]domain.GroupStanding, error) {
	board, ok := s.boards.Get(marathonID)
	if !ok {
		return nil, domain.ErrBoardNotFound
	}
	return board.groupStandings(), nil
}

// GroupMembers ranks the participants of a single group.
func (s *MarathonService) GroupMembers(_ context.Context, marathonID, group string) ([]domain.RankedUser, error) {
	board, ok := s.boards.Get(marathonID)
	if !ok {
		return nil, domain.ErrBoardNotFound
	}
	return board.groupMembers(group), nil
}

// EventProgress reports one user's completion of an event's readings.
func (s *MarathonService) EventProgress(_ context.Context, marathonID, eventID, userID string) (domain.EventProgress, error) {
	board, ok := s.boards.Get(marathonID)
	if !ok {
		return domain.EventProgress{}, domain.ErrBoardNotFound
	}
	return board.eventProgress(eventID, userID)
}

// CreateEvent validates and stores a new event. Events with no readings or
// a missing title/end date are rejected before any state changes.
func (s *MarathonService) CreateEvent(_ context.Context, marathonID string, event domain.Event) (domain.Event, error) {
	board := s.boards.GetOrCreate(marathonID)
	return board.createEvent(event)
}

// RemoveEvent deletes an event. Ledger entries are untouched.
func (s *MarathonService) RemoveEvent(_ context.Context, marathonID, eventID string) error {
	board, ok := s.boards.Get(marathonID)
	if !ok {
		return domain.ErrBoardNotFound
	}
	return board.removeEvent(eventID)
}

// Events lists events in creation order.
func (s *MarathonService) Events(_ context.Context, marathonID string) ([]domain.Event, error) {
	board, ok := s.boards.Get(marathonID)
	if !ok {
		return nil, domain.ErrBoardNotFound
	}
	return board.eventList(), nil
}

// UpsertUser seeds or edits a roster entry wholesale. Editing TotalScore
// directly is allowed and will drift it from the ledger; RecomputeTotals
// repairs that.
func (s *MarathonService) UpsertUser(_ context.Context, marathonID string, user domain.User) (domain.User, domain.Leaderboard, error) {
	board := s.boards.GetOrCreate(marathonID)
	u, lb := board.upsertUser(user)
	return u, lb, nil
}

// RemoveUser deletes a user and cascades to their ledger entries.
func (s *MarathonService) RemoveUser(_ context.Context, marathonID, userID string) (domain.Leaderboard, error) {
	board, ok := s.boards.Get(marathonID)
	if !ok {
		return domain.Leaderboard{}, domain.ErrBoardNotFound
	}
	return board.removeUser(userID)
}

// Roster returns all users in join order.
func (s *MarathonService) Roster(_ context.Context, marathonID string) ([]domain.User, error) {
	board, ok := s.boards.Get(marathonID)
	if !ok {
		return nil, domain.ErrBoardNotFound
	}
	return board.roster(), nil
}

// Groups lists the group registry in creation order.
func (s *MarathonService) Groups(_ context.Context, marathonID string) ([]string, error) {
	board, ok := s.boards.Get(marathonID)
	if !ok {
		return nil, domain.ErrBoardNotFound
	}
	return board.groupNames(), nil
}

// AddGroup registers an empty group so participants can pick it at join time.
func (s *MarathonService) AddGroup(_ context.Context, marathonID, name string) error {
	board := s.boards.GetOrCreate(marathonID)
	board.addGroup(name)
	return nil
}

// RenameGroup renames a registry entry. Users keep their old group string,
// matching the original product's behavior.
func (s *MarathonService) RenameGroup(_ context.Context, marathonID, oldName, newName string) error {
	board, ok := s.boards.Get(marathonID)
	if !ok {
		return domain.ErrBoardNotFound
	}
	board.renameGroup(oldName, newName)
	return nil
}

// RemoveGroup drops a registry entry. Membership on users is untouched.
func (s *MarathonService) RemoveGroup(_ context.Context, marathonID, name string) error {
	board, ok := s.boards.Get(marathonID)
	if !ok {
		return domain.ErrBoardNotFound
	}
	board.removeGroup(name)
	return nil
}

// RecomputeTotals resets every TotalScore to that user's ledger sum,
// repairing drift introduced by direct edits.
func (s *MarathonService) RecomputeTotals(_ context.Context, marathonID string) (domain.Leaderboard, error) {
	board, ok := s.boards.Get(marathonID)
	if !ok {
		return domain.Leaderboard{}, domain.ErrBoardNotFound
	}
	return board.recomputeTotals(), nil
}

// Subscribe returns a channel that receives leaderboard updates for a marathon.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *MarathonService) Subscribe(_ context.Context, marathonID string) (<-chan domain.Leaderboard, func(), error) {
	board, ok := s.boards.Get(marathonID)
	if !ok {
		return nil, nil, domain.ErrBoardNotFound
	}
	ch, cancel := board.subscribe()
	return ch, cancel, nil
}

func (s *MarathonService) findReading(ctx context.Context, readingID string) (domain.Reading, error) {
	readings, err := s.catalog.Catalog(ctx)
	if err != nil {
		return domain.Reading{}, err
	}
	for _, r := range readings {
		if r.ID == readingID {
			return r, nil
		}
	}
	return domain.Reading{}, domain.ErrUnknownReading
}

// Board holds one marathon's mutable state: roster, submission ledger, group
// registry and events. Every mutation happens under one write lock so no
// reader can see a submission without its score reflected in the total.
type Board struct {
	id  string
	now func() time.Time

	mu       sync.RWMutex
	users    map[string]*domain.User
	order    []string // join order, drives stable ranking tie-breaks
	ledger   []domain.Submission
	seen     map[string]struct{} // (user, reading) pairs already submitted
	groups   []string
	events   map[string]domain.Event
	eventIDs []string

	subscribers map[chan domain.Leaderboard]struct{}
	persist     func(domain.BoardSnapshot)
}

func newBoardWithClock(id string, now func() time.Time) *Board {
	return &Board{
		id:          id,
		now:         now,
		users:       make(map[string]*domain.User),
		seen:        make(map[string]struct{}),
		events:      make(map[string]domain.Event),
		subscribers: make(map[chan domain.Leaderboard]struct{}),
	}
}

// RestoreBoard rebuilds a board from a persisted snapshot.
func RestoreBoard(snapshot domain.BoardSnapshot) *Board {
	b := newBoardWithClock(snapshot.MarathonID, time.Now)
	for i := range snapshot.Users {
		u := snapshot.Users[i]
		b.users[u.ID] = &u
		b.order = append(b.order, u.ID)
	}
	for _, s := range snapshot.Submissions {
		b.ledger = append(b.ledger, s)
		b.seen[ledgerKey(s.UserID, s.ReadingID)] = struct{}{}
	}
	b.groups = append(b.groups, snapshot.Groups...)
	for _, e := range snapshot.Events {
		b.events[e.ID] = e
		b.eventIDs = append(b.eventIDs, e.ID)
	}
	return b
}

// OnChange installs a persistence hook invoked after every mutation.
func (b *Board) OnChange(fn func(domain.BoardSnapshot)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.persist = fn
}

// Snapshot returns a consistent copy of the board for persistence.
func (b *Board) Snapshot() domain.BoardSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshotStateLocked()
}

func ledgerKey(userID, readingID string) string {
	return userID + "/" + readingID
}

func (b *Board) join(userID, name, group string) (domain.User, domain.Leaderboard) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if userID != "" {
		if u, ok := b.users[userID]; ok {
			u.Name = name
			u.Group = group
			b.registerGroupLocked(group)
			return *u, b.afterMutationLocked()
		}
	}

	if userID == "" {
		userID = uuid.NewString()
	}
	u := &domain.User{
		ID:    userID,
		Name:  name,
		Group: group,
		Role:  domain.RoleParticipant,
	}
	b.users[userID] = u
	b.order = append(b.order, userID)
	b.registerGroupLocked(group)
	return *u, b.afterMutationLocked()
}

func (b *Board) upsertUser(user domain.User) (domain.User, domain.Leaderboard) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = domain.RoleParticipant
	}
	if existing, ok := b.users[user.ID]; ok {
		*existing = user
	} else {
		u := user
		b.users[user.ID] = &u
		b.order = append(b.order, user.ID)
	}
	b.registerGroupLocked(user.Group)
	return user, b.afterMutationLocked()
}

func (b *Board) markComplete(reading domain.Reading, userID, chosenOptionID string) (domain.CompletionResult, domain.Leaderboard, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	user, ok := b.users[userID]
	if !ok {
		return domain.CompletionResult{}, domain.Leaderboard{}, domain.ErrUnknownUser
	}
	key := ledgerKey(userID, reading.ID)
	if _, dup := b.seen[key]; dup {
		return domain.CompletionResult{}, domain.Leaderboard{}, domain.ErrAlreadySubmitted
	}

	now := b.now()
	score := domain.Score(reading, domain.DateOf(now), chosenOptionID)
	submission := domain.Submission{
		ID:           uuid.NewString(),
		UserID:       userID,
		ReadingID:    reading.ID,
		CompletedAt:  now,
		QuizAnswerID: chosenOptionID,
		IsCorrect:    domain.IsCorrect(reading, chosenOptionID),
		Score:        score,
	}
	b.ledger = append(b.ledger, submission)
	b.seen[key] = struct{}{}
	user.TotalScore += score

	return domain.CompletionResult{
		Submission: submission,
		TotalScore: user.TotalScore,
	}, b.afterMutationLocked(), nil
}

func (b *Board) removeUser(userID string) (domain.Leaderboard, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.users[userID]; !ok {
		return domain.Leaderboard{}, domain.ErrUnknownUser
	}
	delete(b.users, userID)
	for i, id := range b.order {
		if id == userID {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	kept := b.ledger[:0]
	for _, s := range b.ledger {
		if s.UserID == userID {
			delete(b.seen, ledgerKey(s.UserID, s.ReadingID))
			continue
		}
		kept = append(kept, s)
	}
	b.ledger = kept
	return b.afterMutationLocked(), nil
}

func (b *Board) recomputeTotals() domain.Leaderboard {
	b.mu.Lock()
	defer b.mu.Unlock()

	sums := make(map[string]int, len(b.users))
	for _, s := range b.ledger {
		sums[s.UserID] += s.Score
	}
	for id, u := range b.users {
		u.TotalScore = sums[id]
	}
	return b.afterMutationLocked()
}

func (b *Board) createEvent(event domain.Event) (domain.Event, error) {
	if strings.TrimSpace(event.Title) == "" || event.EndDate == "" || len(event.ReadingIDs) == 0 {
		return domain.Event{}, domain.ErrInvalidEvent
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.StartDate == "" {
		event.StartDate = domain.DateOf(b.now())
	}
	b.events[event.ID] = event
	b.eventIDs = append(b.eventIDs, event.ID)
	b.persistLocked()
	return event, nil
}

func (b *Board) removeEvent(eventID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.events[eventID]; !ok {
		return domain.ErrUnknownEvent
	}
	delete(b.events, eventID)
	for i, id := range b.eventIDs {
		if id == eventID {
			b.eventIDs = append(b.eventIDs[:i], b.eventIDs[i+1:]...)
			break
		}
	}
	b.persistLocked()
	return nil
}

func (b *Board) eventProgress(eventID, userID string) (domain.EventProgress, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	event, ok := b.events[eventID]
	if !ok {
		return domain.EventProgress{}, domain.ErrUnknownEvent
	}
	if _, ok := b.users[userID]; !ok {
		return domain.EventProgress{}, domain.ErrUnknownUser
	}
	progress := domain.Progress(event, b.ledger, userID)
	progress.Active = domain.Active(event, domain.DateOf(b.now()))
	return progress, nil
}

func (b *Board) eventList() []domain.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	events := make([]domain.Event, 0, len(b.eventIDs))
	for _, id := range b.eventIDs {
		events = append(events, b.events[id])
	}
	return events
}

func (b *Board) leaderboard() domain.Leaderboard {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.leaderboardLocked()
}

func (b *Board) groupStandings() []domain.GroupStanding {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return domain.RankGroups(b.rosterLocked())
}

func (b *Board) groupMembers(group string) []domain.RankedUser {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return domain.RankWithinGroup(b.rosterLocked(), group)
}

func (b *Board) roster() []domain.User {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rosterLocked()
}

func (b *Board) groupNames() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, len(b.groups))
	copy(names, b.groups)
	return names
}

func (b *Board) addGroup(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registerGroupLocked(name)
	b.persistLocked()
}

func (b *Board) renameGroup(oldName, newName string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, g := range b.groups {
		if g == oldName {
			b.groups[i] = newName
		}
	}
	b.persistLocked()
}

func (b *Board) removeGroup(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, g := range b.groups {
		if g == name {
			b.groups = append(b.groups[:i], b.groups[i+1:]...)
			break
		}
	}
	b.persistLocked()
}

func (b *Board) registerGroupLocked(name string) {
	if name == "" {
		return
	}
	for _, g := range b.groups {
		if g == name {
			return
		}
	}
	b.groups = append(b.groups, name)
}

func (b *Board) subscribe() (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	initial := b.leaderboardLocked()
	b.mu.Unlock()

	ch <- initial

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// afterMutationLocked persists the new state and fans the fresh leaderboard
// out to subscribers.
func (b *Board) afterMutationLocked() domain.Leaderboard {
	b.persistLocked()
	lb := b.leaderboardLocked()
	for ch := range b.subscribers {
		select {
		case ch <- lb:
		default:
			// Drop the stale update so a slow client never blocks the board.
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
	return lb
}

func (b *Board) persistLocked() {
	if b.persist != nil {
		b.persist(b.snapshotStateLocked())
	}
}

func (b *Board) leaderboardLocked() domain.Leaderboard {
	return domain.Leaderboard{
		MarathonID: b.id,
		Entries:    domain.RankIndividuals(b.rosterLocked()),
		UpdatedAt:  b.now(),
	}
}

func (b *Board) rosterLocked() []domain.User {
	users := make([]domain.User, 0, len(b.order))
	for _, id := range b.order {
		users = append(users, *b.users[id])
	}
	return users
}

func (b *Board) snapshotStateLocked() domain.BoardSnapshot {
	snapshot := domain.BoardSnapshot{
		MarathonID:  b.id,
		Users:       b.rosterLocked(),
		Submissions: make([]domain.Submission, len(b.ledger)),
		Groups:      make([]string, len(b.groups)),
	}
	copy(snapshot.Submissions, b.ledger)
	copy(snapshot.Groups, b.groups)
	for _, id := range b.eventIDs {
		snapshot.Events = append(snapshot.Events, b.events[id])
	}
	return snapshot
}

package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"libraryhub/internal/microservices/http-api/models"
)

// MemoryStore keeps accounts, books and borrows in process memory, keyed by id.
// A transaction works on a copy of the data and swaps it in on commit, so a
// failed unit of work leaves nothing behind. Not durable; meant for tests and
// local runs.
type MemoryStore struct {
	mu   sync.Mutex
	data *memoryData
}

type memoryData struct {
	users   map[int64]models.User
	books   map[int64]models.Book
	borrows map[int64]models.Borrow

	nextUserID   int64
	nextBookID   int64
	nextBorrowID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: &memoryData{
		users:   make(map[int64]models.User),
		books:   make(map[int64]models.Book),
		borrows: make(map[int64]models.Borrow),
	}}
}

func (d *memoryData) clone() *memoryData {
	c := &memoryData{
		users:        make(map[int64]models.User, len(d.users)),
		books:        make(map[int64]models.Book, len(d.books)),
		borrows:      make(map[int64]models.Borrow, len(d.borrows)),
		nextUserID:   d.nextUserID,
		nextBookID:   d.nextBookID,
		nextBorrowID: d.nextBorrowID,
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.books {
		c.books[k] = v
	}
	for k, v := range d.borrows {
		c.borrows[k] = v
	}
	return c
}

func (s *MemoryStore) Users() UserRepository     { return (&memView{store: s}).Users() }
func (s *MemoryStore) Books() BookRepository     { return (&memView{store: s}).Books() }
func (s *MemoryStore) Borrows() BorrowRepository { return (&memView{store: s}).Borrows() }

func (s *MemoryStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return (&memView{store: s}).WithTx(ctx, fn)
}

// memView is either the live store (store set) or an open transaction (tx set).
type memView struct {
	store *MemoryStore
	tx    *memoryData
}

// acquire returns the data to operate on and the matching release func.
func (v *memView) acquire() (*memoryData, func()) {
	if v.tx != nil {
		return v.tx, func() {}
	}
	v.store.mu.Lock()
	return v.store.data, v.store.mu.Unlock
}

func (v *memView) Users() UserRepository     { return &memUsers{v: v} }
func (v *memView) Books() BookRepository     { return &memBooks{v: v} }
func (v *memView) Borrows() BorrowRepository { return &memBorrows{v: v} }

func (v *memView) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if v.tx != nil {
		// nested transaction joins the outer one
		return fn(v)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := v.store.data.clone()
	if err := fn(&memView{tx: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	v.store.data = work
	return nil
}

// --- users ---

type memUsers struct{ v *memView }

func (r *memUsers) Create(ctx context.Context, user *models.User) error {
	d, release := r.v.acquire()
	defer release()

	if err := checkUserUnique(d, user); err != nil {
		return err
	}
	d.nextUserID++
	user.ID = d.nextUserID
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	d.users[user.ID] = *user
	return nil
}

func checkUserUnique(d *memoryData, user *models.User) error {
	for _, u := range d.users {
		if u.ID == user.ID {
			continue
		}
		if strings.EqualFold(u.Username, user.Username) {
			return ErrDuplicate
		}
		if user.Email != nil && u.Email != nil && *u.Email == *user.Email {
			return ErrDuplicate
		}
		if user.OAuthID != nil && u.OAuthID != nil && *u.OAuthID == *user.OAuthID {
			return ErrDuplicate
		}
	}
	return nil
}

func (r *memUsers) FindByID(ctx context.Context, id int64) (*models.User, error) {
	d, release := r.v.acquire()
	defer release()

	u, ok := d.users[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &u, nil
}

func (r *memUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	d, release := r.v.acquire()
	defer release()

	for _, u := range d.users {
		if strings.EqualFold(u.Username, username) {
			return &u, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (r *memUsers) List(ctx context.Context) ([]models.User, error) {
	d, release := r.v.acquire()
	defer release()

	list := make([]models.User, 0, len(d.users))
	for _, u := range d.users {
		list = append(list, u)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (r *memUsers) Update(ctx context.Context, user *models.User) error {
	d, release := r.v.acquire()
	defer release()

	if _, ok := d.users[user.ID]; !ok {
		return ErrRecordNotFound
	}
	if err := checkUserUnique(d, user); err != nil {
		return err
	}
	user.UpdatedAt = time.Now()
	d.users[user.ID] = *user
	return nil
}

func (r *memUsers) Delete(ctx context.Context, id int64) error {
	d, release := r.v.acquire()
	defer release()

	if _, ok := d.users[id]; !ok {
		return ErrRecordNotFound
	}
	delete(d.users, id)
	return nil
}

func (r *memUsers) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	d, release := r.v.acquire()
	defer release()

	u, ok := d.users[id]
	if !ok {
		return nil
	}
	u.LastLogin = &at
	d.users[id] = u
	return nil
}

// --- books ---

type memBooks struct{ v *memView }

func (r *memBooks) Create(ctx context.Context, b *models.Book) error {
	d, release := r.v.acquire()
	defer release()

	for _, existing := range d.books {
		if existing.ISBN == b.ISBN {
			return ErrDuplicate
		}
	}
	d.nextBookID++
	b.ID = d.nextBookID
	now := time.Now()
	b.CreatedAt, b.UpdatedAt = now, now
	d.books[b.ID] = *b
	return nil
}

func (r *memBooks) FindByID(ctx context.Context, id int64) (*models.Book, error) {
	d, release := r.v.acquire()
	defer release()

	b, ok := d.books[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &b, nil
}

func (r *memBooks) FindByIDForUpdate(ctx context.Context, id int64) (*models.Book, error) {
	// transactions already hold the store mutex
	return r.FindByID(ctx, id)
}

func (r *memBooks) FindByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	d, release := r.v.acquire()
	defer release()

	for _, b := range d.books {
		if b.ISBN == isbn {
			return &b, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (r *memBooks) List(ctx context.Context) ([]models.Book, error) {
	return r.Search(ctx, "")
}

func (r *memBooks) Search(ctx context.Context, term string) ([]models.Book, error) {
	d, release := r.v.acquire()
	defer release()

	tokens := strings.Fields(strings.ToLower(term))
	list := make([]models.Book, 0, len(d.books))
	for _, b := range d.books {
		if matchesAllTokens(&b, tokens) {
			list = append(list, b)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Title != list[j].Title {
			return list[i].Title < list[j].Title
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

func matchesAllTokens(b *models.Book, tokens []string) bool {
	fields := []string{b.Title, b.Author, b.ISBN, deref(b.Category), deref(b.Description)}
	for _, t := range tokens {
		found := false
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), t) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r *memBooks) Update(ctx context.Context, b *models.Book) error {
	d, release := r.v.acquire()
	defer release()

	if _, ok := d.books[b.ID]; !ok {
		return ErrRecordNotFound
	}
	for _, existing := range d.books {
		if existing.ID != b.ID && existing.ISBN == b.ISBN {
			return ErrDuplicate
		}
	}
	b.UpdatedAt = time.Now()
	d.books[b.ID] = *b
	return nil
}

func (r *memBooks) Delete(ctx context.Context, id int64) error {
	d, release := r.v.acquire()
	defer release()

	if _, ok := d.books[id]; !ok {
		return ErrRecordNotFound
	}
	delete(d.books, id)
	return nil
}

func (r *memBooks) DecrementAvailable(ctx context.Context, id int64) (bool, error) {
	d, release := r.v.acquire()
	defer release()

	b, ok := d.books[id]
	if !ok || b.AvailableCopies <= 0 {
		return false, nil
	}
	b.AvailableCopies--
	d.books[id] = b
	return true, nil
}

func (r *memBooks) IncrementAvailable(ctx context.Context, id int64) (bool, error) {
	d, release := r.v.acquire()
	defer release()

	b, ok := d.books[id]
	if !ok || b.AvailableCopies >= b.TotalCopies {
		return false, nil
	}
	b.AvailableCopies++
	d.books[id] = b
	return true, nil
}

// --- borrows ---

type memBorrows struct{ v *memView }

func (r *memBorrows) Create(ctx context.Context, b *models.Borrow) error {
	d, release := r.v.acquire()
	defer release()

	for _, existing := range d.borrows {
		if existing.BookID == b.BookID && existing.UserID == b.UserID && existing.BorrowDate.Equal(b.BorrowDate) {
			return ErrDuplicate
		}
	}
	d.nextBorrowID++
	b.ID = d.nextBorrowID
	stored := *b
	stored.Book, stored.User = nil, nil
	d.borrows[b.ID] = stored
	return nil
}

func (r *memBorrows) FindByID(ctx context.Context, id int64) (*models.Borrow, error) {
	d, release := r.v.acquire()
	defer release()

	b, ok := d.borrows[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	withAssociations(d, &b, false)
	return &b, nil
}

func (r *memBorrows) HasActive(ctx context.Context, userID, bookID int64) (bool, error) {
	d, release := r.v.acquire()
	defer release()

	for _, b := range d.borrows {
		if b.UserID == userID && b.BookID == bookID && !b.IsReturned {
			return true, nil
		}
	}
	return false, nil
}

func (r *memBorrows) MarkReturned(ctx context.Context, id int64, at time.Time) (bool, error) {
	d, release := r.v.acquire()
	defer release()

	b, ok := d.borrows[id]
	if !ok || b.IsReturned {
		return false, nil
	}
	b.IsReturned = true
	b.ReturnDate = &at
	d.borrows[id] = b
	return true, nil
}

func (r *memBorrows) ListByUser(ctx context.Context, userID int64, activeOnly bool) ([]models.Borrow, error) {
	return r.list(func(b *models.Borrow) bool {
		return b.UserID == userID && (!activeOnly || !b.IsReturned)
	}, false)
}

func (r *memBorrows) ListAll(ctx context.Context) ([]models.Borrow, error) {
	return r.list(func(*models.Borrow) bool { return true }, true)
}

func (r *memBorrows) list(keep func(*models.Borrow) bool, withUser bool) ([]models.Borrow, error) {
	d, release := r.v.acquire()
	defer release()

	list := make([]models.Borrow, 0)
	for _, b := range d.borrows {
		if !keep(&b) {
			continue
		}
		withAssociations(d, &b, withUser)
		list = append(list, b)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].BorrowDate.Equal(list[j].BorrowDate) {
			return list[i].BorrowDate.After(list[j].BorrowDate)
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

func withAssociations(d *memoryData, b *models.Borrow, withUser bool) {
	if book, ok := d.books[b.BookID]; ok {
		b.Book = &book
	}
	if withUser {
		if user, ok := d.users[b.UserID]; ok {
			b.User = &user
		}
	}
}

func (r *memBorrows) CountByBook(ctx context.Context, bookID int64) (int64, error) {
	d, release := r.v.acquire()
	defer release()

	var n int64
	for _, b := range d.borrows {
		if b.BookID == bookID {
			n++
		}
	}
	return n, nil
}

func (r *memBorrows) CountByUser(ctx context.Context, userID int64) (int64, error) {
	d, release := r.v.acquire()
	defer release()

	var n int64
	for _, b := range d.borrows {
		if b.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *memBorrows) ActiveCountsByBook(ctx context.Context) (map[int64]int64, error) {
	d, release := r.v.acquire()
	defer release()

	counts := make(map[int64]int64)
	for _, b := range d.borrows {
		if !b.IsReturned {
			counts[b.BookID]++
		}
	}
	return counts, nil
}

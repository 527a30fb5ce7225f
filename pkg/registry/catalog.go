package registry

import (
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/d4l-data4life/go-mcp-registry/pkg/models"

	"github.com/d4l-data4life/go-svc/pkg/logging"
)

const searchResultCap = 50

// Catalog answers "does tool X exist, what does it need, what can it
// do" without touching storage for built-ins. Third-party entries are
// memoized with a TTL; built-ins are never evicted.
type Catalog struct {
	db       *gorm.DB
	builtins map[string]*models.RegistryEntry
	ttl      time.Duration

	// guards cache replacement; the cache itself is concurrency-safe
	mu    sync.RWMutex
	cache *gocache.Cache
}

// NewCatalog creates a catalog backed by the given database. Built-in
// entries are constructed here and live for the process lifetime.
func NewCatalog(db *gorm.DB, ttl time.Duration) *Catalog {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Catalog{
		db:       db,
		builtins: BuiltinEntries(),
		ttl:      ttl,
		cache:    gocache.New(ttl, 2*ttl),
	}
}

// IsBuiltin reports whether id names a built-in entry.
func (c *Catalog) IsBuiltin(id string) bool {
	_, ok := c.builtins[id]
	return ok
}

// Get resolves a registry entry by id. An unknown id returns (nil, nil)
// rather than an error; callers translate that to a not-found result.
func (c *Catalog) Get(id string) (*models.RegistryEntry, error) {
	if entry, ok := c.builtins[id]; ok {
		return entry, nil
	}

	c.mu.RLock()
	cache := c.cache
	c.mu.RUnlock()

	if cached, ok := cache.Get(id); ok {
		return cached.(*models.RegistryEntry), nil
	}

	var entry models.RegistryEntry
	if err := c.db.First(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to load registry entry %s", id)
	}

	cache.Set(id, &entry, c.ttl)
	return &entry, nil
}

// ListByScope returns matching built-ins plus active, enabled
// third-party entries whose scope is the requested one or "both".
// Built-ins matching the scope are always included regardless of
// storage state.
func (c *Catalog) ListByScope(scope models.Scope) ([]*models.RegistryEntry, error) {
	var result []*models.RegistryEntry
	for _, entry := range c.builtins {
		if entry.Scope.Matches(scope) {
			result = append(result, entry)
		}
	}

	var stored []models.RegistryEntry
	err := c.db.
		Where("scope IN ?", []models.Scope{scope, models.ScopeBoth}).
		Where("status = ? AND is_enabled = ? AND is_builtin = ?", models.StatusActive, true, false).
		Find(&stored).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list registry entries")
	}
	for i := range stored {
		result = append(result, &stored[i])
	}
	return result, nil
}

// ListAll returns every built-in plus every stored third-party entry,
// regardless of scope or status.
func (c *Catalog) ListAll() ([]*models.RegistryEntry, error) {
	var result []*models.RegistryEntry
	for _, entry := range c.builtins {
		result = append(result, entry)
	}

	var stored []models.RegistryEntry
	if err := c.db.Where("is_builtin = ?", false).Find(&stored).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list registry entries")
	}
	for i := range stored {
		result = append(result, &stored[i])
	}
	return result, nil
}

// Search performs a case-insensitive substring match over entry name
// and description, ordered by rating, capped at 50 results.
func (c *Catalog) Search(query string, scope models.Scope) ([]*models.RegistryEntry, error) {
	needle := strings.ToLower(strings.TrimSpace(query))

	var result []*models.RegistryEntry
	for _, entry := range c.builtins {
		if scope != "" && !entry.Scope.Matches(scope) {
			continue
		}
		if matchesQuery(entry, needle) {
			result = append(result, entry)
		}
	}

	q := c.db.
		Where("status = ? AND is_enabled = ? AND is_builtin = ?", models.StatusActive, true, false).
		Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", "%"+needle+"%", "%"+needle+"%").
		Order("rating_score DESC, rating_count DESC").
		Limit(searchResultCap)
	if scope != "" {
		q = q.Where("scope IN ?", []models.Scope{scope, models.ScopeBoth})
	}

	var stored []models.RegistryEntry
	if err := q.Find(&stored).Error; err != nil {
		return nil, errors.Wrap(err, "registry search failed")
	}
	for i := range stored {
		result = append(result, &stored[i])
	}

	if len(result) > searchResultCap {
		result = result[:searchResultCap]
	}
	return result, nil
}

func matchesQuery(entry *models.RegistryEntry, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(entry.Name), needle) ||
		strings.Contains(strings.ToLower(entry.Description), needle)
}

// Register validates and persists a new third-party entry. Built-ins
// cannot be shadowed or replaced.
func (c *Catalog) Register(entry *models.RegistryEntry) error {
	if entry.ID == "" {
		return errors.New("registry entry id is required")
	}
	if c.IsBuiltin(entry.ID) {
		return errors.Errorf("id %s is reserved for a built-in entry", entry.ID)
	}
	if err := ValidateManifest(entry.Manifest.Data()); err != nil {
		return errors.Wrap(err, "manifest validation failed")
	}

	entry.IsBuiltin = false
	entry.IsVerified = false
	if entry.Status == "" {
		entry.Status = models.StatusActive
	}
	if entry.Version == "" {
		entry.Version = entry.Manifest.Data().Version
	}

	if err := c.db.Create(entry).Error; err != nil {
		return errors.Wrapf(err, "failed to persist registry entry %s", entry.ID)
	}

	c.mu.RLock()
	c.cache.Set(entry.ID, entry, c.ttl)
	c.mu.RUnlock()

	logging.LogInfof("Registered third-party entry: %s (%s)", entry.ID, entry.Name)
	return nil
}

// ClearCache drops the third-party cache. The replacement is a swap of
// the whole cache instance under the write lock, so concurrent readers
// either see the old complete cache or the new empty one, never a
// half-cleared state. Built-ins are untouched.
func (c *Catalog) ClearCache() {
	fresh := gocache.New(c.ttl, 2*c.ttl)
	c.mu.Lock()
	old := c.cache
	c.cache = fresh
	c.mu.Unlock()
	old.Flush()

	logging.LogDebugf("Registry cache cleared (%d built-ins preserved)", len(c.builtins))
}

// UpdateStatus mutates the status of a stored third-party entry.
// Built-in entries are immutable except for in-memory stats.
func (c *Catalog) UpdateStatus(id string, status models.EntryStatus) error {
	if c.IsBuiltin(id) {
		return errors.Errorf("cannot update status of built-in entry %s", id)
	}
	if err := c.db.Model(&models.RegistryEntry{}).Where("id = ?", id).
		Update("status", status).Error; err != nil {
		return errors.Wrapf(err, "failed to update status of %s", id)
	}
	c.mu.RLock()
	c.cache.Delete(id)
	c.mu.RUnlock()
	return nil
}

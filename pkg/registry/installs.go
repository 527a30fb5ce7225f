package registry

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d4l-data4life/go-mcp-registry/pkg/models"

	"github.com/d4l-data4life/go-svc/pkg/logging"
)

// ErrUnknownEntry is returned when an install references an id the
// catalog cannot resolve.
var ErrUnknownEntry = errors.New("unknown registry entry")

// InstallManager tracks, per user, which non-built-in entries are
// installed and enabled. Built-in entries are implicitly available to
// everyone and never get install rows.
type InstallManager struct {
	db      *gorm.DB
	catalog *Catalog
}

// NewInstallManager creates an install manager on top of the catalog.
func NewInstallManager(db *gorm.DB, catalog *Catalog) *InstallManager {
	return &InstallManager{db: db, catalog: catalog}
}

// Install upserts an install row for (user, mcp). Re-installing always
// re-enables and replaces the instance configuration.
func (m *InstallManager) Install(userID uuid.UUID, mcpID string, scope models.Scope, config datatypes.JSON) (uuid.UUID, error) {
	entry, err := m.catalog.Get(mcpID)
	if err != nil {
		return uuid.Nil, err
	}
	if entry == nil {
		return uuid.Nil, errors.Wrapf(ErrUnknownEntry, "cannot install %s", mcpID)
	}

	install := models.UserInstall{
		ID:        uuid.New(),
		UserID:    userID,
		MCPID:     mcpID,
		Scope:     scope,
		Config:    config,
		IsEnabled: true,
	}
	err = m.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "mcp_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"scope", "config", "is_enabled"}),
	}).Create(&install).Error
	if err != nil {
		return uuid.Nil, errors.Wrapf(err, "failed to install %s for user %s", mcpID, userID)
	}

	// The upsert may have kept the existing row id
	var row models.UserInstall
	if err := m.db.First(&row, "user_id = ? AND mcp_id = ?", userID, mcpID).Error; err != nil {
		return uuid.Nil, errors.Wrap(err, "failed to read back install")
	}

	logging.LogDebugf("Installed %s for user %s (scope=%s)", mcpID, userID, scope)
	return row.ID, nil
}

// Uninstall hard-deletes the install row. No disabled orphan survives.
func (m *InstallManager) Uninstall(userID uuid.UUID, mcpID string) error {
	res := m.db.Where("user_id = ? AND mcp_id = ?", userID, mcpID).Delete(&models.UserInstall{})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed to uninstall %s for user %s", mcpID, userID)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	logging.LogDebugf("Uninstalled %s for user %s", mcpID, userID)
	return nil
}

// SetEnabled toggles an install without touching its identity.
func (m *InstallManager) SetEnabled(userID uuid.UUID, mcpID string, enabled bool) error {
	res := m.db.Model(&models.UserInstall{}).
		Where("user_id = ? AND mcp_id = ?", userID, mcpID).
		Update("is_enabled", enabled)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed to toggle %s for user %s", mcpID, userID)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateConfig replaces the opaque instance configuration.
func (m *InstallManager) UpdateConfig(userID uuid.UUID, mcpID string, config datatypes.JSON) error {
	res := m.db.Model(&models.UserInstall{}).
		Where("user_id = ? AND mcp_id = ?", userID, mcpID).
		Update("config", config)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed to update config of %s for user %s", mcpID, userID)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetInstall returns the install row for (user, mcp) if present.
func (m *InstallManager) GetInstall(userID uuid.UUID, mcpID string) (*models.UserInstall, error) {
	var row models.UserInstall
	if err := m.db.First(&row, "user_id = ? AND mcp_id = ?", userID, mcpID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to load install")
	}
	return &row, nil
}

// ListInstalls returns all install rows of a user.
func (m *InstallManager) ListInstalls(userID uuid.UUID) ([]models.UserInstall, error) {
	var rows []models.UserInstall
	if err := m.db.Where("user_id = ?", userID).Order("installed_at DESC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list installs")
	}
	return rows, nil
}

// AvailableForUser resolves the user's effective tools for a scope:
// built-ins matching the scope plus enabled installs resolved through
// the catalog. Built-ins are never filtered by install state.
func (m *InstallManager) AvailableForUser(userID uuid.UUID, scope models.Scope) ([]*models.RegistryEntry, error) {
	var result []*models.RegistryEntry
	for _, entry := range m.catalog.builtins {
		if entry.Scope.Matches(scope) {
			result = append(result, entry)
		}
	}

	var rows []models.UserInstall
	err := m.db.
		Where("user_id = ? AND is_enabled = ?", userID, true).
		Where("scope IN ?", []models.Scope{scope, models.ScopeBoth}).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load installs")
	}

	for _, row := range rows {
		if m.catalog.IsBuiltin(row.MCPID) {
			continue
		}
		entry, err := m.catalog.Get(row.MCPID)
		if err != nil {
			return nil, err
		}
		if entry == nil || !entry.Scope.Matches(scope) {
			continue
		}
		result = append(result, entry)
	}
	return result, nil
}

// TouchLastUsed records usage on the install row. Best-effort: errors
// are logged and swallowed.
func (m *InstallManager) TouchLastUsed(userID uuid.UUID, mcpID string) {
	if userID == uuid.Nil || m.catalog.IsBuiltin(mcpID) {
		return
	}
	now := time.Now()
	err := m.db.Model(&models.UserInstall{}).
		Where("user_id = ? AND mcp_id = ?", userID, mcpID).
		Update("last_used_at", &now).Error
	if err != nil {
		logging.LogWarningf(err, "Failed to record last use of %s for user %s", mcpID, userID)
	}
}

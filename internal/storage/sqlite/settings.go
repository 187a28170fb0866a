package sqlite

import (
	"context"
	"fmt"

	"github.com/julianstephens/daychain/internal/constants"
	"github.com/julianstephens/daychain/internal/errors"
	"github.com/julianstephens/daychain/internal/models"
)

func (s *Store) GetSettings(ctx context.Context) (models.Settings, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return models.Settings{}, err
	}
	defer rows.Close()

	settings := models.Settings{}
	count := 0
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return models.Settings{}, err
		}
		switch key {
		case constants.SettingUserID:
			settings.UserID = value
		case constants.SettingWakeTime:
			settings.WakeTime = value
		case constants.SettingSleepTime:
			settings.SleepTime = value
		case constants.SettingTimezone:
			settings.Timezone = value
		case constants.SettingEnergy:
			settings.DefaultEnergy = value
		case constants.SettingHomeLocation:
			settings.HomeLocation = value
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return models.Settings{}, err
	}

	if count == 0 {
		return models.Settings{}, fmt.Errorf("settings: %w", errors.ErrNotFound)
	}

	return settings, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings models.Settings) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, kv := range [][2]string{
		{constants.SettingUserID, settings.UserID},
		{constants.SettingWakeTime, settings.WakeTime},
		{constants.SettingSleepTime, settings.SleepTime},
		{constants.SettingTimezone, settings.Timezone},
		{constants.SettingEnergy, settings.DefaultEnergy},
		{constants.SettingHomeLocation, settings.HomeLocation},
	} {
		if _, err := stmt.ExecContext(ctx, kv[0], kv[1]); err != nil {
			return fmt.Errorf("saving setting %s: %w", kv[0], err)
		}
	}

	return tx.Commit()
}

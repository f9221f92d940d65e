package migrations

import "gorm.io/gorm"

// migration003Up creates performance and uniqueness indexes. The unique
// indexes are load-bearing: they serialize ordinal assignment and make the
// first selection of a listing win.
func migration003Up(db *gorm.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind)",
		"CREATE INDEX IF NOT EXISTS idx_events_window ON events(start_date, end_date)",

		"CREATE UNIQUE INDEX IF NOT EXISTS idx_participants_event_ordinal ON participants(event_id, ordinal)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_participants_event_agent ON participants(event_id, agent_id)",
		"CREATE INDEX IF NOT EXISTS idx_participants_event_status ON participants(event_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_participants_turn_end ON participants(turn_end)",

		"CREATE UNIQUE INDEX IF NOT EXISTS idx_selections_event_listing ON selections(event_id, listing_id)",
		"CREATE INDEX IF NOT EXISTS idx_selections_event ON selections(event_id)",
		"CREATE INDEX IF NOT EXISTS idx_selections_agent ON selections(agent_id)",

		"CREATE INDEX IF NOT EXISTS idx_listings_agent ON listings(agent_id)",
	}

	for _, indexSQL := range indexes {
		if err := db.Exec(indexSQL).Error; err != nil {
			return err
		}
	}

	return nil
}

// migration003Down drops the indexes
func migration003Down(db *gorm.DB) error {
	indexes := []string{
		"DROP INDEX IF EXISTS idx_events_kind",
		"DROP INDEX IF EXISTS idx_events_window",
		"DROP INDEX IF EXISTS idx_participants_event_ordinal",
		"DROP INDEX IF EXISTS idx_participants_event_agent",
		"DROP INDEX IF EXISTS idx_participants_event_status",
		"DROP INDEX IF EXISTS idx_participants_turn_end",
		"DROP INDEX IF EXISTS idx_selections_event_listing",
		"DROP INDEX IF EXISTS idx_selections_event",
		"DROP INDEX IF EXISTS idx_selections_agent",
		"DROP INDEX IF EXISTS idx_listings_agent",
	}

	for _, indexSQL := range indexes {
		if err := db.Exec(indexSQL).Error; err != nil {
			return err
		}
	}

	return nil
}

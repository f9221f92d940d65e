package migrations

import "gorm.io/gorm"

// migration004Up creates integrity constraints on the scheduler tables
func migration004Up(db *gorm.DB) error {
	constraints := []string{
		`ALTER TABLE events
            ADD CONSTRAINT chk_events_window CHECK (end_date > start_date)`,

		`ALTER TABLE events
            ADD CONSTRAINT chk_events_turn_duration CHECK (turn_duration_seconds > 0)`,

		`ALTER TABLE participants
            ADD CONSTRAINT chk_participants_ordinal CHECK (ordinal >= 1)`,

		`ALTER TABLE participants
            ADD CONSTRAINT fk_participants_event
            FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE`,

		`ALTER TABLE selections
            ADD CONSTRAINT fk_selections_event
            FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE`,

		`ALTER TABLE selections
            ADD CONSTRAINT fk_selections_listing
            FOREIGN KEY (listing_id) REFERENCES listings(id) ON DELETE CASCADE`,

		// A turn window is either fully set or fully absent.
		`ALTER TABLE participants
            ADD CONSTRAINT chk_participants_turn_window
            CHECK ((turn_start IS NULL) = (turn_end IS NULL))`,
	}

	for _, constraintSQL := range constraints {
		if err := db.Exec(constraintSQL).Error; err != nil {
			return err
		}
	}

	return nil
}

// migration004Down drops the constraints
func migration004Down(db *gorm.DB) error {
	constraints := []string{
		"ALTER TABLE participants DROP CONSTRAINT IF EXISTS chk_participants_turn_window",
		"ALTER TABLE selections DROP CONSTRAINT IF EXISTS fk_selections_listing",
		"ALTER TABLE selections DROP CONSTRAINT IF EXISTS fk_selections_event",
		"ALTER TABLE participants DROP CONSTRAINT IF EXISTS fk_participants_event",
		"ALTER TABLE participants DROP CONSTRAINT IF EXISTS chk_participants_ordinal",
		"ALTER TABLE events DROP CONSTRAINT IF EXISTS chk_events_turn_duration",
		"ALTER TABLE events DROP CONSTRAINT IF EXISTS chk_events_window",
	}

	for _, constraintSQL := range constraints {
		if err := db.Exec(constraintSQL).Error; err != nil {
			return err
		}
	}

	return nil
}

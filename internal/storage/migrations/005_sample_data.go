package migrations

import "gorm.io/gorm"

// migration005Up inserts sample data for testing and development
func migration005Up(db *gorm.DB) error {
	eventsSQL := `
        INSERT INTO events (id, name, kind, start_date, end_date, turn_duration_seconds) VALUES
            ('770e8400-e29b-41d4-a716-446655440000',
             'Pemilihan Unit Cluster Griya Asri 2026',
             'pemilu',
             '2026-09-01 02:00:00+00',
             '2026-09-01 10:00:00+00',
             60),
            ('770e8400-e29b-41d4-a716-446655440001',
             'Open House Taman Melati',
             'regular',
             '2026-09-05 02:00:00+00',
             '2026-09-05 10:00:00+00',
             60)
        ON CONFLICT (id) DO NOTHING
    `

	if err := db.Exec(eventsSQL).Error; err != nil {
		return err
	}

	listingsSQL := `
        INSERT INTO listings (id, title, address, price) VALUES
            ('880e8400-e29b-41d4-a716-446655440000', 'Rumah Tipe 36 Blok A1', 'Jl. Griya Asri No. 1, Bekasi', 450000000),
            ('880e8400-e29b-41d4-a716-446655440001', 'Rumah Tipe 36 Blok A2', 'Jl. Griya Asri No. 2, Bekasi', 450000000),
            ('880e8400-e29b-41d4-a716-446655440002', 'Rumah Tipe 45 Blok B1', 'Jl. Griya Asri No. 3, Bekasi', 620000000),
            ('880e8400-e29b-41d4-a716-446655440003', 'Rumah Tipe 45 Blok B2', 'Jl. Griya Asri No. 4, Bekasi', 620000000),
            ('880e8400-e29b-41d4-a716-446655440004', 'Rumah Tipe 60 Blok C1', 'Jl. Griya Asri No. 5, Bekasi', 850000000)
        ON CONFLICT (id) DO NOTHING
    `

	return db.Exec(listingsSQL).Error
}

// migration005Down removes the sample data
func migration005Down(db *gorm.DB) error {
	statements := []string{
		"DELETE FROM selections WHERE event_id = '770e8400-e29b-41d4-a716-446655440000'",
		"DELETE FROM participants WHERE event_id = '770e8400-e29b-41d4-a716-446655440000'",
		"DELETE FROM listings WHERE id::text LIKE '880e8400-e29b-41d4-a716-%'",
		"DELETE FROM events WHERE id::text LIKE '770e8400-e29b-41d4-a716-%'",
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}

	return nil
}

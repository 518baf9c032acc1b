package store

// SQL query constants organized by entity.
// PostgresStore methods reference these constants; no SQL lives elsewhere.

// Migration bookkeeping.
const (
	queryCreateSchemaMigrations = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`

	queryMigrationApplied = `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`

	queryRecordMigration = `INSERT INTO schema_migrations (version) VALUES ($1)`
)

// User queries.
const (
	queryCreateUser = `
		INSERT INTO users (username, email)
		VALUES (@username, @email)
		RETURNING id, created_at`

	queryGetUser = `
		SELECT id, username, email, created_at
		FROM users
		WHERE id = $1`
)

// Product queries.
const (
	productColumns = `id, url, website, external_id, name, image_url, description, created_at, updated_at`

	// The no-op DO UPDATE makes RETURNING yield the existing row; xmax = 0
	// only for a freshly inserted tuple.
	queryGetOrCreateProduct = `
		INSERT INTO products (url, website, external_id, name, image_url, description)
		VALUES (@url, @website, @external_id, @name, @image_url, @description)
		ON CONFLICT (url) DO UPDATE SET url = EXCLUDED.url
		RETURNING ` + productColumns + `, (xmax = 0) AS inserted`

	queryGetProduct = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	queryGetProductByURL = `SELECT ` + productColumns + ` FROM products WHERE url = $1`

	queryUpdateProductDetails = `
		UPDATE products SET
			external_id = @external_id,
			name = @name,
			image_url = @image_url,
			description = @description,
			updated_at = now()
		WHERE id = @id
		RETURNING updated_at`
)

// Observation queries.
const (
	observationColumns = `id, product_id, price, currency, available, observed_at`

	queryAppendObservation = `
		INSERT INTO price_observations (product_id, price, currency, available, observed_at)
		VALUES (@product_id, @price, @currency, @available, @observed_at)
		RETURNING id`

	queryLatestObservation = `
		SELECT ` + observationColumns + `
		FROM price_observations
		WHERE product_id = $1
		ORDER BY observed_at DESC, id DESC
		LIMIT 1`

	queryListObservations = `
		SELECT ` + observationColumns + `
		FROM price_observations
		WHERE product_id = $1
		ORDER BY observed_at DESC, id DESC
		LIMIT $2`
)

// Tracker queries.
const (
	trackerColumns = `id, user_id, product_id, target_price, active, check_interval_seconds,
		last_checked_at, last_error, last_notified_price, created_at, updated_at`

	queryCreateTracker = `
		INSERT INTO trackers (user_id, product_id, target_price, active, check_interval_seconds)
		VALUES (@user_id, @product_id, @target_price, @active, @check_interval_seconds)
		RETURNING id, created_at, updated_at`

	queryGetTracker = `SELECT ` + trackerColumns + ` FROM trackers WHERE id = $1`

	queryListTrackersAll = `SELECT ` + trackerColumns + ` FROM trackers ORDER BY created_at, id`

	queryListTrackersActive = `SELECT ` + trackerColumns + ` FROM trackers WHERE active ORDER BY created_at, id`

	queryListTrackersByUser = `SELECT ` + trackerColumns + ` FROM trackers WHERE user_id = $1 ORDER BY created_at, id`

	// A changed target re-arms the tracker in the same statement; otherwise
	// the crossing state set by ClaimCrossing is left alone.
	queryUpdateTracker = `
		UPDATE trackers SET
			target_price = @target_price,
			active = @active,
			check_interval_seconds = @check_interval_seconds,
			last_notified_price = CASE
				WHEN target_price <> @target_price THEN NULL
				ELSE last_notified_price
			END,
			updated_at = now()
		WHERE id = @id
		RETURNING last_notified_price, updated_at`

	queryDeleteTracker = `DELETE FROM trackers WHERE id = $1`

	queryRecordTrackerCheck = `
		UPDATE trackers SET last_checked_at = $2, last_error = $3
		WHERE id = $1`

	queryDisarmTracker = `
		UPDATE trackers SET last_notified_price = $2
		WHERE id = $1 AND last_notified_price IS NULL
		RETURNING user_id`

	queryRearmTracker = `UPDATE trackers SET last_notified_price = NULL WHERE id = $1`

	queryTrackerExists = `SELECT EXISTS(SELECT 1 FROM trackers WHERE id = $1)`
)

// Notification queries.
const (
	notificationColumns = `id, user_id, tracker_id, message, read, created_at`

	queryCreateNotification = `
		INSERT INTO notifications (user_id, tracker_id, message)
		VALUES (@user_id, @tracker_id, @message)
		RETURNING id, created_at`

	queryListNotifications = `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC`

	queryListUnreadNotifications = `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1 AND NOT read
		ORDER BY created_at DESC`

	queryMarkNotificationRead = `UPDATE notifications SET read = true WHERE id = $1`
)

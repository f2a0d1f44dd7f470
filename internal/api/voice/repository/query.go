package voiceRepository

// Column types are kept to the subset Postgres and SQLite both accept.
const (
	queryCreateFeedbackTable = `
		CREATE TABLE IF NOT EXISTS voice_feedback (
			id              TEXT PRIMARY KEY,
			user_id         TEXT NOT NULL DEFAULT '',
			timestamp       BIGINT NOT NULL,
			command_id      TEXT NOT NULL DEFAULT '',
			command         TEXT NOT NULL,
			action          TEXT NOT NULL DEFAULT '',
			rating          INTEGER NOT NULL,
			confidence      DOUBLE PRECISION NOT NULL DEFAULT 0,
			feedback_type   TEXT NOT NULL DEFAULT '',
			comment         TEXT NOT NULL DEFAULT '',
			expected_action TEXT NOT NULL DEFAULT '',
			session_id      TEXT NOT NULL,
			context         TEXT NOT NULL DEFAULT '{}',
			tags            TEXT NOT NULL DEFAULT '[]',
			resolved        BOOLEAN NOT NULL DEFAULT FALSE,
			resolution      TEXT NOT NULL DEFAULT '',
			resolved_at     BIGINT NOT NULL DEFAULT 0,
			auto_generated  BOOLEAN NOT NULL DEFAULT FALSE,
			user_agent      TEXT NOT NULL DEFAULT ''
		)
	`

	queryCreateFeedbackSessionIndex = `
		CREATE INDEX IF NOT EXISTS idx_voice_feedback_session ON voice_feedback (session_id)
	`

	queryCreateSessionTable = `
		CREATE TABLE IF NOT EXISTS voice_sessions (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL,
			trigger_type TEXT NOT NULL,
			current_path TEXT NOT NULL DEFAULT '',
			started_at   BIGINT NOT NULL,
			ended_at     BIGINT NOT NULL DEFAULT 0,
			end_reason   TEXT NOT NULL DEFAULT '',
			duration     BIGINT NOT NULL DEFAULT 0,
			commands     INTEGER NOT NULL DEFAULT 0,
			failures     INTEGER NOT NULL DEFAULT 0
		)
	`

	queryCreateFeedback = `
		INSERT INTO voice_feedback (
			id, user_id, timestamp, command_id, command, action,
			rating, confidence, feedback_type, comment, expected_action,
			session_id, context, tags, resolved, resolution, resolved_at,
			auto_generated, user_agent
		) VALUES (
			:id, :user_id, :timestamp, :command_id, :command, :action,
			:rating, :confidence, :feedback_type, :comment, :expected_action,
			:session_id, :context, :tags, :resolved, :resolution, :resolved_at,
			:auto_generated, :user_agent
		)
	`

	feedbackColumns = `
		id, user_id, timestamp, command_id, command, action,
		rating, confidence, feedback_type, comment, expected_action,
		session_id, context, tags, resolved, resolution, resolved_at,
		auto_generated
	`

	queryGetFeedbackByID = `
		SELECT ` + feedbackColumns + `
		FROM voice_feedback
		WHERE id = :id
	`

	queryGetFeedbackBySession = `
		SELECT ` + feedbackColumns + `
		FROM voice_feedback
		WHERE session_id = :session_id
		ORDER BY timestamp DESC
	`

	queryGetFeedbackBetween = `
		SELECT ` + feedbackColumns + `
		FROM voice_feedback
		WHERE timestamp >= :start AND timestamp <= :end
		ORDER BY timestamp DESC
	`

	queryGetNegativeFeedback = `
		SELECT ` + feedbackColumns + `
		FROM voice_feedback
		WHERE (rating > 0 AND rating <= 2) OR feedback_type = 'negative'
		ORDER BY timestamp DESC
		LIMIT :limit
	`

	queryGetRatingDistribution = `
		SELECT rating, COUNT(*) AS total
		FROM voice_feedback
		WHERE rating > 0
		GROUP BY rating
	`

	queryCountFeedback = `
		SELECT COUNT(*)
		FROM voice_feedback
	`

	queryResolveFeedback = `
		UPDATE voice_feedback
		SET
			resolved = :resolved,
			resolution = :resolution,
			resolved_at = :resolved_at
		WHERE id = :id
	`

	queryCreateSession = `
		INSERT INTO voice_sessions (
			id, user_id, trigger_type, current_path, started_at
		) VALUES (
			:id, :user_id, :trigger_type, :current_path, :started_at
		)
	`

	queryEndSession = `
		UPDATE voice_sessions
		SET
			ended_at = :ended_at,
			end_reason = :end_reason,
			duration = :duration,
			commands = :commands,
			failures = :failures
		WHERE id = :id AND ended_at = 0
	`

	queryGetSessionsByUserID = `
		SELECT
			id, user_id, trigger_type, current_path, started_at,
			ended_at, end_reason, duration, commands, failures
		FROM voice_sessions
		WHERE user_id = :user_id
		ORDER BY started_at DESC
		LIMIT :limit OFFSET :offset
	`

	queryCountSessionsByUserID = `
		SELECT COUNT(*)
		FROM voice_sessions
		WHERE user_id = :user_id
	`
)

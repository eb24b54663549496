package repository

import "fmt"

// PredictionsTable is the default table name for stored forecast points.
const PredictionsTable = "predictions"

// Schema returns the idempotent DDL for the service's tables. All tables
// are ReplacingMergeTree versioned by updated_at so repeated inserts of a
// key keep the latest row.
func Schema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		`CREATE TABLE IF NOT EXISTS currency_pairs (
            id UInt32,
            name String,
            updated_at DateTime64(3, 'UTC')
        ) ENGINE = ReplacingMergeTree(updated_at)
        ORDER BY (name)`,
		`CREATE TABLE IF NOT EXISTS periods (
            id UInt32,
            name String,
            updated_at DateTime64(3, 'UTC')
        ) ENGINE = ReplacingMergeTree(updated_at)
        ORDER BY (name)`,
		`CREATE TABLE IF NOT EXISTS prediction_models (
            id UInt32,
            name String,
            updated_at DateTime64(3, 'UTC')
        ) ENGINE = ReplacingMergeTree(updated_at)
        ORDER BY (name)`,
		`CREATE TABLE IF NOT EXISTS predictions (
            pair_id UInt32,
            period_id UInt32,
            model_id UInt32,
            ts DateTime('UTC'),
            value Float64,
            anchor Float64,
            updated_at DateTime64(3, 'UTC')
        ) ENGINE = ReplacingMergeTree(updated_at)
        ORDER BY (pair_id, period_id, model_id, ts)
        TTL ts + INTERVAL 30 DAY`,
	}
}

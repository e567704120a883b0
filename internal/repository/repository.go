package repository

import "database/sql"

// requireRowAffected converts a zero-row update into sql.ErrNoRows so
// services can map it onto the not-found path.
func requireRowAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

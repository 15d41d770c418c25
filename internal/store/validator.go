package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/evidenceworks/consensus/internal/domain"
)

// #region insert-validator
// InsertValidator creates a directory record for a validator.
func (s *Store) InsertValidator(q Querier, v domain.Validator) error {
	specJSON, err := json.Marshal(v.Specialties)
	if err != nil {
		return fmt.Errorf("marshal specialties: %w", err)
	}
	_, err = q.Exec(
		`INSERT INTO validators (validator_id, name, status, available, specialties,
		   current_load, max_capacity, rating, last_assigned_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.Name, string(v.Status), boolToInt(v.Available), string(specJSON),
		v.CurrentLoad, v.MaxCapacity, v.Rating, timeOrNull(v.LastAssignedAt),
	)
	if err != nil {
		return fmt.Errorf("insert validator: %w", err)
	}
	return nil
}

// #endregion insert-validator

// #region get-validator
// GetValidator retrieves a validator by id.
func (s *Store) GetValidator(q Querier, id string) (domain.Validator, error) {
	row := q.QueryRow(validatorSelect+` WHERE validator_id = ?`, id)
	v, err := scanValidatorRow(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Validator{}, &domain.NotFoundError{Kind: "validator", ID: id}
	}
	if err != nil {
		return domain.Validator{}, fmt.Errorf("get validator %s: %w", id, err)
	}
	return v, nil
}

const validatorSelect = `SELECT validator_id, name, status, available, specialties,
   current_load, max_capacity, rating, last_assigned_at
 FROM validators`

func scanValidatorRow(scan func(dest ...any) error) (domain.Validator, error) {
	var v domain.Validator
	var status, specJSON string
	var available int
	var lastAssigned sql.NullString

	err := scan(&v.ID, &v.Name, &status, &available, &specJSON,
		&v.CurrentLoad, &v.MaxCapacity, &v.Rating, &lastAssigned)
	if err != nil {
		return domain.Validator{}, err
	}

	v.Status = domain.ValidatorStatus(status)
	v.Available = available != 0
	if err := json.Unmarshal([]byte(specJSON), &v.Specialties); err != nil {
		return domain.Validator{}, fmt.Errorf("unmarshal specialties: %w", err)
	}
	v.LastAssignedAt = parseNullTime(lastAssigned)
	return v, nil
}

// #endregion get-validator

// #region list-validators
// ListValidators returns all validators, optionally filtered to those
// covering the given specialty. Empty specialty lists everyone.
func (s *Store) ListValidators(q Querier, specialty string) ([]domain.Validator, error) {
	rows, err := q.Query(validatorSelect + ` ORDER BY validator_id`)
	if err != nil {
		return nil, fmt.Errorf("list validators: %w", err)
	}
	defer rows.Close()

	var out []domain.Validator
	for rows.Next() {
		v, err := scanValidatorRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan validator: %w", err)
		}
		if specialty != "" && !v.HasSpecialty(specialty) {
			continue
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// #endregion list-validators

// #region adjust-load
// AdjustValidatorLoad changes a validator's load counter by delta inside the
// caller's transaction. The schema CHECK plus the WHERE guard keep the load
// inside [0, max_capacity]; a blocked adjustment returns ConflictError.
func (s *Store) AdjustValidatorLoad(q Querier, id string, delta int) error {
	res, err := q.Exec(
		`UPDATE validators
		 SET current_load = current_load + ?
		 WHERE validator_id = ?
		   AND current_load + ? >= 0
		   AND current_load + ? <= max_capacity`,
		delta, id, delta, delta,
	)
	if err != nil {
		return fmt.Errorf("adjust load for %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjust load for %s: %w", id, err)
	}
	if n == 0 {
		return &domain.ConflictError{
			Detail: fmt.Sprintf("validator %s load adjustment %+d blocked", id, delta),
		}
	}
	return nil
}

// TouchValidatorAssigned stamps the validator's last-assigned time.
func (s *Store) TouchValidatorAssigned(q Querier, id string, at time.Time) error {
	_, err := q.Exec(
		`UPDATE validators SET last_assigned_at = ? WHERE validator_id = ?`,
		at.UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("touch validator %s: %w", id, err)
	}
	return nil
}

// #endregion adjust-load

// #region update-validator
// UpdateValidatorDirectory writes the directory-owned fields: status,
// availability, specialties, capacity, rating.
func (s *Store) UpdateValidatorDirectory(q Querier, v domain.Validator) error {
	specJSON, err := json.Marshal(v.Specialties)
	if err != nil {
		return fmt.Errorf("marshal specialties: %w", err)
	}
	res, err := q.Exec(
		`UPDATE validators
		 SET name = ?, status = ?, available = ?, specialties = ?, max_capacity = ?, rating = ?
		 WHERE validator_id = ?`,
		v.Name, string(v.Status), boolToInt(v.Available), string(specJSON),
		v.MaxCapacity, v.Rating, v.ID,
	)
	if err != nil {
		return fmt.Errorf("update validator %s: %w", v.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update validator %s: %w", v.ID, err)
	}
	if n == 0 {
		return &domain.NotFoundError{Kind: "validator", ID: v.ID}
	}
	return nil
}

// #endregion update-validator

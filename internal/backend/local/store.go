package local

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/aitteam/whm/internal/backend"
	"github.com/aitteam/whm/internal/db"
)

// storedRecord is one row of the records table.
type storedRecord struct {
	ID           string
	Collection   string
	Data         map[string]any
	PasswordHash string
	Created      string
	Updated      string
}

func (r *storedRecord) str(field string) string {
	s, _ := r.Data[field].(string)
	return s
}

// toRecord flattens the row into the wire shape. The password hash never
// leaves the store.
func (r *storedRecord) toRecord() backend.Record {
	out := make(backend.Record, len(r.Data)+5)
	for k, v := range r.Data {
		out[k] = v
	}
	out["id"] = r.ID
	out["collectionId"] = r.Collection
	out["collectionName"] = r.Collection
	out["created"] = r.Created
	out["updated"] = r.Updated
	return out
}

const recordColumns = `id, collection, data, password_hash, created, updated`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*storedRecord, error) {
	var (
		rec  storedRecord
		data string
	)
	if err := row.Scan(&rec.ID, &rec.Collection, &data, &rec.PasswordHash, &rec.Created, &rec.Updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &rec.Data); err != nil {
		return nil, fmt.Errorf("decoding record %s: %w", rec.ID, err)
	}
	if rec.Data == nil {
		rec.Data = map[string]any{}
	}
	return &rec, nil
}

func insertRecord(ctx context.Context, q db.DBTX, rec *storedRecord) error {
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO records (id, collection, data, password_hash, created, updated) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Collection, string(data), rec.PasswordHash, rec.Created, rec.Updated)
	if err != nil {
		return fmt.Errorf("inserting record: %w", err)
	}
	return nil
}

func updateRecord(ctx context.Context, q db.DBTX, rec *storedRecord) error {
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	_, err = q.ExecContext(ctx,
		`UPDATE records SET data = ?, password_hash = ?, updated = ? WHERE collection = ? AND id = ?`,
		string(data), rec.PasswordHash, rec.Updated, rec.Collection, rec.ID)
	if err != nil {
		return fmt.Errorf("updating record: %w", err)
	}
	return nil
}

func deleteRecord(ctx context.Context, q db.DBTX, collection, id string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM records WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	return nil
}

func getRecord(ctx context.Context, q db.DBTX, collection, id string) (*storedRecord, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE collection = ? AND id = ?`, collection, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, backend.ErrNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("loading record: %w", err)
	}
	return rec, nil
}

// findByField returns the first record whose field equals value, or nil.
func findByField(ctx context.Context, q db.DBTX, collection, field, value string) (*storedRecord, error) {
	if !fieldNamePattern.MatchString(field) {
		return nil, fmt.Errorf("invalid field name %q", field)
	}
	row := q.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE collection = ? AND json_extract(data, '$.`+field+`') = ? LIMIT 1`,
		collection, value)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding record by %s: %w", field, err)
	}
	return rec, nil
}

// getMany loads the records with the given ids, keyed by id.
func getMany(ctx context.Context, q db.DBTX, collection string, ids []string) (map[string]*storedRecord, error) {
	out := make(map[string]*storedRecord, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, collection)
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := q.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE collection = ? AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("loading related records: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out[rec.ID] = rec
	}
	return out, rows.Err()
}

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// listQuery is a parsed GetList request.
type listQuery struct {
	where   []string
	args    []any
	orderBy string
}

func columnFor(s *schema, name string) (string, bool) {
	switch name {
	case "id", "created", "updated":
		return name, true
	}
	if _, ok := s.field(name); ok {
		return "json_extract(data, '$." + name + "')", true
	}
	return "", false
}

func badRequest(format string, args ...any) *backend.Error {
	return backend.NewError(http.StatusBadRequest, fmt.Sprintf(format, args...))
}

// parseSort turns "-created,name" into an ORDER BY clause. The insertion
// sequence breaks ties so equal timestamps still order deterministically.
func parseSort(s *schema, sort string) (string, error) {
	if strings.TrimSpace(sort) == "" {
		return "seq ASC", nil
	}
	var parts []string
	tie := "seq ASC"
	for i, token := range strings.Split(sort, ",") {
		token = strings.TrimSpace(token)
		dir := "ASC"
		switch {
		case strings.HasPrefix(token, "-"):
			dir, token = "DESC", token[1:]
		case strings.HasPrefix(token, "+"):
			token = token[1:]
		}
		col, ok := columnFor(s, token)
		if !ok {
			return "", badRequest("Invalid sort field %q.", token)
		}
		if i == 0 {
			tie = "seq " + dir
		}
		parts = append(parts, col+" "+dir)
	}
	return strings.Join(append(parts, tie), ", "), nil
}

var filterClause = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*(!=|\?=|=|~)\s*(.+?)\s*$`)

// parseFilter accepts clauses of the form `field op value` joined with &&,
// where op is =, !=, ?= (list contains) or ~ (substring).
func parseFilter(s *schema, filter string, q *listQuery) error {
	if strings.TrimSpace(filter) == "" {
		return nil
	}
	for _, clause := range strings.Split(filter, "&&") {
		m := filterClause.FindStringSubmatch(clause)
		if m == nil {
			return badRequest("Invalid filter expression %q.", strings.TrimSpace(clause))
		}
		name, op, raw := m[1], m[2], m[3]
		col, ok := columnFor(s, name)
		if !ok {
			return badRequest("Invalid filter field %q.", name)
		}
		value, err := filterValue(raw)
		if err != nil {
			return err
		}
		f, _ := s.field(name)
		switch {
		case op == "?=" || (op == "=" && f.multi):
			q.where = append(q.where,
				`EXISTS (SELECT 1 FROM json_each(records.data, '$.`+name+`') WHERE json_each.value = ?)`)
		case op == "~":
			q.where = append(q.where, col+` LIKE '%' || ? || '%'`)
		case op == "!=":
			q.where = append(q.where, `IFNULL(`+col+`, '') != ?`)
		default:
			q.where = append(q.where, col+` = ?`)
		}
		q.args = append(q.args, value)
	}
	return nil
}

func filterValue(raw string) (any, error) {
	if len(raw) >= 2 && (raw[0] == '"' || raw[0] == '\'') && raw[len(raw)-1] == raw[0] {
		return raw[1 : len(raw)-1], nil
	}
	switch raw {
	case "true":
		return 1, nil
	case "false":
		return 0, nil
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n, nil
	}
	return nil, badRequest("Invalid filter value %s.", raw)
}

// listRecords returns one page of a collection plus the total match count.
func listRecords(ctx context.Context, q db.DBTX, s *schema, offset, limit int, opts backend.ListOptions) ([]*storedRecord, int, error) {
	lq := listQuery{where: []string{"collection = ?"}, args: []any{s.name}}
	if err := parseFilter(s, opts.Filter, &lq); err != nil {
		return nil, 0, err
	}
	order, err := parseSort(s, opts.Sort)
	if err != nil {
		return nil, 0, err
	}
	lq.orderBy = order
	where := strings.Join(lq.where, " AND ")

	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE `+where, lq.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting records: %w", err)
	}

	args := append(append([]any{}, lq.args...), limit, offset)
	rows, err := q.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE `+where+` ORDER BY `+lq.orderBy+` LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var out []*storedRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

func loadSetting(ctx context.Context, q db.DBTX, key string) (string, error) {
	var v string
	err := q.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

func saveSetting(ctx context.Context, q db.DBTX, key, value string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

package sdk

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// OwnerColumn is the column that records which caller created a row.
const OwnerColumn = "created_by"

// UserEntity is the account table. It is owned through its email column
// rather than created_by: a user owns their own account row.
const UserEntity = "User"

var identifierRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validIdentifier(name string) error {
	if !identifierRegexp.MatchString(name) {
		return fmt.Errorf("invalid identifier %q", name)
	}
	return nil
}

// statements assembles the SQL for the generic entity operations. Entity
// and column names are validated against a strict identifier pattern and
// double quoted; all values travel as bind parameters.
type statements struct {
	schema string
}

func (s statements) table(entity string) string {
	return fmt.Sprintf("%s.\"%s\"", s.schema, entity)
}

func (s statements) ownerPredicateColumn(entity string) string {
	if entity == UserEntity {
		return "email"
	}
	return OwnerColumn
}

// parameterString returns $1,...,$n
func parameterString(n int) string {
	result := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			result += ","
		}
		result += "$" + strconv.Itoa(i+1)
	}
	return result
}

func sortedKeys(object map[string]interface{}) []string {
	keys := make([]string, 0, len(object))
	for key := range object {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// bindValue converts a record value into something database/sql can bind.
// Maps and slices are stored as their JSON encoding.
func bindValue(value interface{}) (interface{}, error) {
	switch value.(type) {
	case nil, bool, int, int64, float64, string, []byte:
		return value, nil
	default:
		return json.Marshal(value)
	}
}

// insert builds an INSERT returning the stored row. For owned entities a
// non-empty owner always overwrites any created_by the caller supplied.
func (s statements) insert(entity, owner string, object Record) (string, []interface{}, error) {
	if err := validIdentifier(entity); err != nil {
		return "", nil, err
	}
	fields := Record{}
	for key, value := range object {
		fields[key] = value
	}
	if owner != "" && entity != UserEntity {
		fields[OwnerColumn] = owner
	}
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("insert into %s without fields", entity)
	}
	keys := sortedKeys(fields)
	columns := make([]string, len(keys))
	values := make([]interface{}, len(keys))
	for i, key := range keys {
		if err := validIdentifier(key); err != nil {
			return "", nil, err
		}
		columns[i] = "\"" + key + "\""
		value, err := bindValue(fields[key])
		if err != nil {
			return "", nil, err
		}
		values[i] = value
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		s.table(entity), strings.Join(columns, ", "), parameterString(len(keys)))
	return query, values, nil
}

func (s statements) list(entity, owner string) (string, []interface{}, error) {
	if err := validIdentifier(entity); err != nil {
		return "", nil, err
	}
	query := "SELECT * FROM " + s.table(entity)
	if owner == "" {
		return query, nil, nil
	}
	query += fmt.Sprintf(" WHERE \"%s\" = $1", s.ownerPredicateColumn(entity))
	return query, []interface{}{owner}, nil
}

// filter builds a SELECT with one equality predicate per criterion. For
// scoped access the owner predicate is merged in and cannot be overridden
// by the criteria.
func (s statements) filter(entity, owner string, criteria Record) (string, []interface{}, error) {
	if err := validIdentifier(entity); err != nil {
		return "", nil, err
	}
	fields := Record{}
	for key, value := range criteria {
		fields[key] = value
	}
	if owner != "" {
		fields[s.ownerPredicateColumn(entity)] = owner
	}
	if len(fields) == 0 {
		return s.list(entity, owner)
	}
	keys := sortedKeys(fields)
	predicates := make([]string, len(keys))
	values := make([]interface{}, len(keys))
	for i, key := range keys {
		if err := validIdentifier(key); err != nil {
			return "", nil, err
		}
		predicates[i] = fmt.Sprintf("\"%s\" = $%d", key, i+1)
		value, err := bindValue(fields[key])
		if err != nil {
			return "", nil, err
		}
		values[i] = value
	}
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s",
		s.table(entity), strings.Join(predicates, " AND "))
	return query, values, nil
}

func (s statements) get(entity, owner string, id interface{}) (string, []interface{}, error) {
	if err := validIdentifier(entity); err != nil {
		return "", nil, err
	}
	query := "SELECT * FROM " + s.table(entity) + " WHERE id = $1"
	values := []interface{}{id}
	if owner != "" {
		query += fmt.Sprintf(" AND \"%s\" = $2", s.ownerPredicateColumn(entity))
		values = append(values, owner)
	}
	return query, values, nil
}

// update builds an UPDATE with both the id and, for scoped access, the
// owner in the WHERE clause. A row the caller does not own is simply not
// matched.
func (s statements) update(entity, owner string, id interface{}, object Record) (string, []interface{}, error) {
	if err := validIdentifier(entity); err != nil {
		return "", nil, err
	}
	if len(object) == 0 {
		return "", nil, fmt.Errorf("update of %s without fields", entity)
	}
	keys := sortedKeys(object)
	assignments := make([]string, len(keys))
	values := make([]interface{}, 0, len(keys)+2)
	for i, key := range keys {
		if err := validIdentifier(key); err != nil {
			return "", nil, err
		}
		assignments[i] = fmt.Sprintf("\"%s\" = $%d", key, i+1)
		value, err := bindValue(object[key])
		if err != nil {
			return "", nil, err
		}
		values = append(values, value)
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d",
		s.table(entity), strings.Join(assignments, ", "), len(keys)+1)
	values = append(values, id)
	if owner != "" {
		query += fmt.Sprintf(" AND \"%s\" = $%d", s.ownerPredicateColumn(entity), len(keys)+2)
		values = append(values, owner)
	}
	query += " RETURNING *"
	return query, values, nil
}

func (s statements) delete(entity, owner string, id interface{}) (string, []interface{}, error) {
	if err := validIdentifier(entity); err != nil {
		return "", nil, err
	}
	query := "DELETE FROM " + s.table(entity) + " WHERE id = $1"
	values := []interface{}{id}
	if owner != "" {
		query += fmt.Sprintf(" AND \"%s\" = $2", s.ownerPredicateColumn(entity))
		values = append(values, owner)
	}
	return query, values, nil
}

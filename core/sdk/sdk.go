/*Package sdk is the entity access layer used by backend functions. It
gives every handler uniform create, list, filter, get, update and delete
operations over any entity table, with row ownership enforced in the SQL
itself.

A client built from a request is scoped to that request's caller: every
row it writes is stamped with the caller's email in created_by, and every
row it reads or mutates must carry that same email. Unauthenticated
requests are scoped to a shared anonymous owner so that local development
works without logging in. A service role client carries no owner and sees
all rows; it is reserved for process-internal work such as scheduled
jobs.
*/
package sdk

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/marcossouzacontrole-cpu/finquest/core"
	"github.com/marcossouzacontrole-cpu/finquest/core/access"
	"github.com/marcossouzacontrole-cpu/finquest/core/csql"
	"github.com/marcossouzacontrole-cpu/finquest/core/logger"
	"github.com/marcossouzacontrole-cpu/finquest/core/schema"
)

// Record is a single entity row as a generic object.
type Record map[string]interface{}

// ErrNotFound is returned when an entity row does not exist or is not
// visible to the calling identity. The two cases are indistinguishable.
var ErrNotFound = errors.New("not found")

// AnonymousEmail is the shared owner for requests without a valid bearer
// token.
const AnonymousEmail = "anonymous@local.dev"

// EntityStore is the generic entity access contract implemented by
// Client.
type EntityStore interface {
	Create(ctx context.Context, entity string, object Record) (Record, error)
	List(ctx context.Context, entity string) ([]Record, error)
	Filter(ctx context.Context, entity string, criteria Record) ([]Record, error)
	Get(ctx context.Context, entity string, id interface{}) (Record, error)
	Update(ctx context.Context, entity string, id interface{}, object Record) (Record, error)
	Delete(ctx context.Context, entity string, id interface{}) error
}

// Auth resolves the identity a client is scoped to.
type Auth struct {
	identity      access.Identity
	authenticated bool
}

// Me returns the authenticated caller identity, or access.ErrNoIdentity
// for clients built from requests without a valid token.
func (a Auth) Me() (access.Identity, error) {
	if !a.authenticated {
		return access.Identity{}, access.ErrNoIdentity
	}
	return a.identity, nil
}

// Client is the scoped entity store for one caller.
type Client struct {
	Auth      Auth
	db        *csql.DB
	stmt      statements
	owner     string
	validator *schema.Validator
}

var _ EntityStore = (*Client)(nil)

// NewClientFromRequest builds a client scoped to the request's caller.
// Requests without a valid bearer token get the anonymous owner.
func NewClientFromRequest(db *csql.DB, r *http.Request) *Client {
	client := &Client{
		db:    db,
		stmt:  statements{schema: db.Schema},
		owner: AnonymousEmail,
	}
	if identity, ok := access.IdentityFromRequest(r); ok {
		client.Auth = Auth{identity: identity, authenticated: true}
		client.owner = identity.Email
	}
	return client
}

// NewServiceRoleClient builds an unscoped client that sees and writes
// rows for all owners. It must only be handed to trusted process-internal
// callers, never to request handlers.
func NewServiceRoleClient(db *csql.DB) *Client {
	return &Client{
		db:   db,
		stmt: statements{schema: db.Schema},
	}
}

// WithSchemaValidation returns a copy of the client that validates
// objects against the given schemas before writing them.
func (c *Client) WithSchemaValidation(validator *schema.Validator) *Client {
	clone := *c
	clone.validator = validator
	return &clone
}

func (c *Client) query(ctx context.Context, op core.Operation, entity, query string, values []interface{}) ([]Record, error) {
	if err := c.db.EnsureConnected(ctx); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).WithField("operation", string(op)).Debugln(query)
	rows, err := c.db.QueryContext(ctx, query, values...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Create stores a new entity row and returns it as stored, including
// generated columns.
func (c *Client) Create(ctx context.Context, entity string, object Record) (Record, error) {
	if err := c.validator.Validate(entity, object); err != nil {
		return nil, err
	}
	query, values, err := c.stmt.insert(entity, c.owner, object)
	if err != nil {
		return nil, err
	}
	records, err := c.query(ctx, core.OperationCreate, entity, query, values)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records[0], nil
}

// List returns all rows of the entity visible to the client's owner.
func (c *Client) List(ctx context.Context, entity string) ([]Record, error) {
	query, values, err := c.stmt.list(entity, c.owner)
	if err != nil {
		return nil, err
	}
	return c.query(ctx, core.OperationList, entity, query, values)
}

// Filter returns the visible rows matching all criteria by equality.
func (c *Client) Filter(ctx context.Context, entity string, criteria Record) ([]Record, error) {
	query, values, err := c.stmt.filter(entity, c.owner, criteria)
	if err != nil {
		return nil, err
	}
	return c.query(ctx, core.OperationFilter, entity, query, values)
}

// Get returns the row with the given id, or ErrNotFound when it does not
// exist or belongs to someone else.
func (c *Client) Get(ctx context.Context, entity string, id interface{}) (Record, error) {
	query, values, err := c.stmt.get(entity, c.owner, id)
	if err != nil {
		return nil, err
	}
	records, err := c.query(ctx, core.OperationGet, entity, query, values)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records[0], nil
}

// Update modifies the given columns of the row and returns the row as
// stored. Rows the owner cannot see yield ErrNotFound.
func (c *Client) Update(ctx context.Context, entity string, id interface{}, object Record) (Record, error) {
	if err := c.validator.Validate(entity, object); err != nil {
		return nil, err
	}
	query, values, err := c.stmt.update(entity, c.owner, id, object)
	if err != nil {
		return nil, err
	}
	records, err := c.query(ctx, core.OperationUpdate, entity, query, values)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records[0], nil
}

// Delete removes the row if the owner can see it. Deleting a missing or
// foreign row succeeds without effect.
func (c *Client) Delete(ctx context.Context, entity string, id interface{}) error {
	query, values, err := c.stmt.delete(entity, c.owner, id)
	if err != nil {
		return err
	}
	if err := c.db.EnsureConnected(ctx); err != nil {
		return err
	}
	logger.FromContext(ctx).WithField("operation", string(core.OperationDelete)).Debugln(query)
	_, err = c.db.ExecContext(ctx, query, values...)
	return err
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	records := []Record{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		for i := range values {
			values[i] = new(interface{})
		}
		if err := rows.Scan(values...); err != nil {
			return nil, err
		}
		record := Record{}
		for i, column := range columns {
			record[column] = normalizeValue(*values[i].(*interface{}))
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// normalizeValue turns byte slices from the driver into strings, or into
// nested objects when they hold JSON.
func normalizeValue(value interface{}) interface{} {
	raw, ok := value.([]byte)
	if !ok {
		return value
	}
	if len(raw) > 0 && (raw[0] == '{' || raw[0] == '[') {
		var nested interface{}
		if err := json.Unmarshal(raw, &nested); err == nil {
			return nested
		}
	}
	return string(raw)
}

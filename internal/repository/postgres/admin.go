package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/leadfunnel/internal/domain"
	"github.com/ignite/leadfunnel/internal/service/admin"
)

// leadTable maps a funnel onto its table's column names.
type leadTable struct {
	name        string
	columns     string
	created     string
	stage       string
	search      []string
	pending     string // expression counting unrelayed leads
	recoverable string // expression summing recoverable amounts
	scan        func(rowScanner) (domain.Lead, error)
}

var leadTables = map[domain.Funnel]leadTable{
	domain.FunnelROI: {
		name:        "leads",
		columns:     roiColumns,
		created:     "created_at",
		stage:       "stage",
		search:      []string{"contact_name", "email", "phone", "product_name"},
		pending:     "0",
		recoverable: "0",
		scan:        scanROI,
	},
	domain.FunnelRevolving: {
		name:        "leads_revolving",
		columns:     revolvingColumns,
		created:     "fecha_registro",
		stage:       "estado",
		search:      []string{"nombre", "email", "telefono", "entidad_financiera"},
		pending:     "COUNT(*) FILTER (WHERE relay_status <> 'relayed')",
		recoverable: "COALESCE(SUM(cantidad_recuperable), 0)",
		scan:        scanRevolving,
	},
}

// AdminRepo implements admin.Repository against PostgreSQL.
type AdminRepo struct{ db *sql.DB }

// NewAdminRepo creates a Postgres-backed admin repository.
func NewAdminRepo(db *sql.DB) *AdminRepo { return &AdminRepo{db: db} }

func tableFor(f domain.Funnel) (leadTable, error) {
	t, ok := leadTables[f]
	if !ok {
		return leadTable{}, admin.ErrUnknownFunnel
	}
	return t, nil
}

// where builds the WHERE clause for f. Values are always bound.
func (t leadTable) where(f admin.Filter) (string, []interface{}) {
	conds := []string{"1=1"}
	var args []interface{}
	bind := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Stage != "" {
		conds = append(conds, t.stage+" = "+bind(string(f.Stage)))
	}
	if !f.From.IsZero() {
		conds = append(conds, t.created+" >= "+bind(f.From))
	}
	if !f.To.IsZero() {
		conds = append(conds, t.created+" < "+bind(f.To))
	}
	if f.Search != "" {
		p := bind("%" + escapeLike(f.Search) + "%")
		var or []string
		for _, c := range t.search {
			or = append(or, c+" ILIKE "+p)
		}
		conds = append(conds, "("+strings.Join(or, " OR ")+")")
	}
	return strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *AdminRepo) List(ctx context.Context, f admin.Filter) ([]domain.Lead, int, error) {
	t, err := tableFor(f.Funnel)
	if err != nil {
		return nil, 0, err
	}
	where, args := t.where(f)

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+t.name+` WHERE `+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY %s DESC, id DESC LIMIT $%d OFFSET $%d`,
		t.columns, t.name, where, t.created, n+1, n+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var out []domain.Lead
	for rows.Next() {
		l, err := t.scan(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan lead: %w", err)
		}
		out = append(out, l)
	}
	return out, total, rows.Err()
}

func (r *AdminRepo) UpdateStage(ctx context.Context, funnel domain.Funnel, id int64, stage domain.Stage) error {
	t, err := tableFor(funnel)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE `+t.name+` SET `+t.stage+` = $1 WHERE id = $2`,
		string(stage), id,
	)
	if err != nil {
		return fmt.Errorf("update stage: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return admin.ErrNotFound
	}
	return nil
}

func (r *AdminRepo) Stats(ctx context.Context, funnel domain.Funnel, today time.Time) (*admin.Stats, error) {
	t, err := tableFor(funnel)
	if err != nil {
		return nil, err
	}
	st := &admin.Stats{Funnel: funnel}
	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE `+t.created+` >= $1),
		       COUNT(*) FILTER (WHERE `+t.stage+` = 'nuevo'),
		       `+t.pending+`,
		       `+t.recoverable+`
		FROM `+t.name, today,
	).Scan(&st.Total, &st.Today, &st.New, &st.PendingRelay, &st.Recoverable)
	if err != nil {
		return nil, fmt.Errorf("lead stats: %w", err)
	}
	return st, nil
}

// GetByToken looks the token up in the ROI table first, then in
// leads_revolving.
func (r *AdminRepo) GetByToken(ctx context.Context, token string) (*domain.Lead, error) {
	l, err := scanROI(r.db.QueryRowContext(ctx,
		`SELECT `+roiColumns+` FROM leads WHERE token = $1`, token,
	))
	if errors.Is(err, sql.ErrNoRows) {
		l, err = scanRevolving(r.db.QueryRowContext(ctx,
			`SELECT `+revolvingColumns+` FROM leads_revolving WHERE token = $1`, token,
		))
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, admin.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lead by token: %w", err)
	}
	return &l, nil
}

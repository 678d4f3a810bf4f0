package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/paymux/gateway/internal/domain"
)

// GatewayRepo owns gateways_config.
type GatewayRepo struct {
	db *sql.DB
}

func NewGatewayRepo(db *sql.DB) *GatewayRepo {
	return &GatewayRepo{db: db}
}

const gatewayColumns = `gateway_id, gateway_name, adapter_type, is_enabled, priority,
	supported_methods, timeout_ms, COALESCE(mock_behavior, '')`

func scanGateway(sc interface{ Scan(...any) error }) (domain.GatewayConfig, error) {
	var g domain.GatewayConfig
	err := sc.Scan(&g.GatewayID, &g.GatewayName, &g.AdapterType, &g.IsEnabled, &g.Priority,
		pq.Array(&g.SupportedMethods), &g.TimeoutMs, &g.MockBehavior)
	return g, err
}

// List returns every configured gateway ordered by priority.
func (r *GatewayRepo) List(ctx context.Context) ([]domain.GatewayConfig, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+gatewayColumns+` FROM gateways_config ORDER BY priority, gateway_id`)
	if err != nil {
		return nil, fmt.Errorf("list gateways: %w", err)
	}
	defer rows.Close()

	var out []domain.GatewayConfig
	for rows.Next() {
		g, err := scanGateway(rows)
		if err != nil {
			return nil, fmt.Errorf("scan gateway: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// EnabledForMethod returns enabled gateways supporting the method,
// priority order preserved for stable tie-breaking downstream.
func (r *GatewayRepo) EnabledForMethod(ctx context.Context, method domain.PaymentMethod) ([]domain.GatewayConfig, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+gatewayColumns+` FROM gateways_config
		WHERE is_enabled AND $1 = ANY(supported_methods)
		ORDER BY priority, gateway_id`, string(method))
	if err != nil {
		return nil, fmt.Errorf("list enabled gateways: %w", err)
	}
	defer rows.Close()

	var out []domain.GatewayConfig
	for rows.Next() {
		g, err := scanGateway(rows)
		if err != nil {
			return nil, fmt.Errorf("scan gateway: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Get loads one gateway; nil when unknown.
func (r *GatewayRepo) Get(ctx context.Context, gatewayID string) (*domain.GatewayConfig, error) {
	g, err := scanGateway(r.db.QueryRowContext(ctx,
		`SELECT `+gatewayColumns+` FROM gateways_config WHERE gateway_id = $1`, gatewayID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get gateway: %w", err)
	}
	return &g, nil
}

// GatewayPatch carries the mutable fields of PATCH /gateways/:id.
type GatewayPatch struct {
	IsEnabled    *bool   `json:"is_enabled,omitempty"`
	Priority     *int    `json:"priority,omitempty"`
	TimeoutMs    *int    `json:"timeout_ms,omitempty"`
	MockBehavior *string `json:"mock_behavior,omitempty"`
}

// Update applies a partial patch, returning the updated row.
func (r *GatewayRepo) Update(ctx context.Context, gatewayID string, patch GatewayPatch) (*domain.GatewayConfig, error) {
	_, err := r.db.ExecContext(ctx, `
		UPDATE gateways_config SET
			is_enabled    = COALESCE($2, is_enabled),
			priority      = COALESCE($3, priority),
			timeout_ms    = COALESCE($4, timeout_ms),
			mock_behavior = COALESCE($5, mock_behavior)
		WHERE gateway_id = $1`,
		gatewayID, patch.IsEnabled, patch.Priority, patch.TimeoutMs, patch.MockBehavior)
	if err != nil {
		return nil, fmt.Errorf("update gateway: %w", err)
	}
	return r.Get(ctx, gatewayID)
}

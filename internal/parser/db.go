package parser

import (
	"database/sql"
	"fmt"
	"strings"

	"vpn-provisioner/internal/model"

	_ "github.com/go-sql-driver/mysql"
)

// MariaDBProvider reads endpoint records from the vpn_endpoint table.
type MariaDBProvider struct {
	db        *sql.DB
	siteGroup string

	Endpoints []model.EndpointRecord
}

func NewMariaDBProvider(dsn string, siteGroup string) (*MariaDBProvider, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &MariaDBProvider{
		db:        db,
		siteGroup: siteGroup,
	}, nil
}

func (p *MariaDBProvider) Close() {
	p.db.Close()
}

func (p *MariaDBProvider) Load() error {
	query := "SELECT " + strings.Join(endpointColumns, ", ") + " FROM vpn_endpoint"
	var args []any
	if p.siteGroup != "" {
		query += " WHERE site_group = ?"
		args = append(args, p.siteGroup)
	}
	query += " ORDER BY id ASC"

	rows, err := p.db.Query(query, args...)
	if err != nil {
		return fmt.Errorf("failed to query endpoints: %w", err)
	}
	defer rows.Close()

	line := 0
	for rows.Next() {
		line++
		cols := make([]sql.NullString, len(endpointColumns))
		dest := make([]any, len(cols))
		for i := range cols {
			dest[i] = &cols[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return err
		}

		values := make(map[string]string, len(endpointColumns))
		for i, col := range endpointColumns {
			v := strings.TrimSpace(cols[i].String)
			if v == "" && !optionalValues[col] {
				return fmt.Errorf("row %d: empty value in column '%s'", line, col)
			}
			values[col] = v
		}
		p.Endpoints = append(p.Endpoints, recordFromValues(values))
	}
	return rows.Err()
}

/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Normalized database types.
const (
	TypeMySQL    = "mysql"
	TypePostgres = "postgres"
	TypeSQLite   = "sqlite"
)

var supportedTypes = []string{TypeMySQL, TypePostgres, TypeSQLite}

// NormalizeType maps the accepted aliases of a database type onto one name.
func NormalizeType(typ string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "mysql", "mariadb":
		return TypeMySQL, nil
	case "postgres", "postgresql", "pg":
		return TypePostgres, nil
	case "sqlite", "sqlite3":
		return TypeSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database type: %s, supported types: %v", typ, supportedTypes)
	}
}

// DataSource is the resolved driver name and DSN for sql.Open.
type DataSource struct {
	Type   string
	Driver string
	DSN    string
}

// ResolveDataSource derives the driver and DSN from the config. The URL wins
// over the discrete fields; its scheme selects the database type.
func (c *ConnectionConfig) ResolveDataSource() (*DataSource, error) {
	if c.URL != "" {
		return c.fromURL(c.URL)
	}
	typ, err := NormalizeType(c.Type)
	if err != nil {
		return nil, err
	}
	switch typ {
	case TypeMySQL:
		port := c.Port
		if port == 0 {
			port = 3306
		}
		cfg := c.mysqlConfig()
		cfg.User = c.Username
		cfg.Passwd = c.Password
		cfg.Addr = net.JoinHostPort(c.Host, strconv.Itoa(port))
		cfg.DBName = c.DBName
		return &DataSource{Type: typ, Driver: "mysql", DSN: cfg.FormatDSN()}, nil
	case TypePostgres:
		port := c.Port
		if port == 0 {
			port = 5432
		}
		u := &url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(c.Username, c.Password),
			Host:   net.JoinHostPort(c.Host, strconv.Itoa(port)),
			Path:   "/" + c.DBName,
		}
		u.RawQuery = c.postgresParams(url.Values{}).Encode()
		return &DataSource{Type: typ, Driver: "postgres", DSN: u.String()}, nil
	default:
		return &DataSource{Type: typ, Driver: sqliteshim.ShimName, DSN: sqlitePath(c.DBName)}, nil
	}
}

func (c *ConnectionConfig) fromURL(raw string) (*DataSource, error) {
	scheme, _, ok := strings.Cut(raw, ":")
	if !ok {
		return nil, fmt.Errorf("invalid database url: missing scheme")
	}
	if strings.EqualFold(scheme, "file") {
		return &DataSource{Type: TypeSQLite, Driver: sqliteshim.ShimName, DSN: raw}, nil
	}
	typ, err := NormalizeType(scheme)
	if err != nil {
		return nil, err
	}
	if typ == TypeSQLite {
		path := strings.TrimPrefix(raw[len(scheme)+1:], "//")
		if path == "" {
			return nil, fmt.Errorf("invalid database url: empty sqlite path")
		}
		return &DataSource{Type: typ, Driver: sqliteshim.ShimName, DSN: path}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}
	if typ == TypePostgres {
		u.Scheme = "postgres"
		u.RawQuery = c.postgresParams(u.Query()).Encode()
		return &DataSource{Type: typ, Driver: "postgres", DSN: u.String()}, nil
	}

	cfg := c.mysqlConfig()
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	cfg.Addr = u.Host
	if u.Port() == "" {
		cfg.Addr = net.JoinHostPort(u.Hostname(), "3306")
	}
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	for key, values := range u.Query() {
		if len(values) == 0 {
			continue
		}
		if cfg.Params == nil {
			cfg.Params = map[string]string{}
		}
		cfg.Params[key] = values[0]
	}
	return &DataSource{Type: typ, Driver: "mysql", DSN: cfg.FormatDSN()}, nil
}

func (c *ConnectionConfig) mysqlConfig() *mysql.Config {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.ParseTime = true
	cfg.Loc = time.Local
	cfg.Timeout = c.ConnectTimeout
	cfg.ReadTimeout = c.ReadTimeout
	cfg.WriteTimeout = c.WriteTimeout
	return cfg
}

func (c *ConnectionConfig) postgresParams(q url.Values) url.Values {
	if q.Get("sslmode") == "" {
		sslMode := c.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		q.Set("sslmode", sslMode)
	}
	if q.Get("connect_timeout") == "" && c.ConnectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(c.ConnectTimeout.Seconds())))
	}
	return q
}

func sqlitePath(name string) string {
	switch {
	case name == "":
		return "file::memory:?cache=shared"
	case name == ":memory:", strings.HasPrefix(name, "file:"), strings.HasSuffix(name, ".db"):
		return name
	default:
		return name + ".db"
	}
}

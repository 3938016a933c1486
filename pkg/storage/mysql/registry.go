// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	// registers the "mysql" driver with database/sql
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"

	"github.com/apache/airavata-gfac/pkg/common"
	"github.com/apache/airavata-gfac/pkg/storage"
)

const (
	registryTable = "registry_entities"

	createTableStmt = `CREATE TABLE IF NOT EXISTS ` + registryTable + ` (
  row_key VARCHAR(255) NOT NULL,
  col_key VARCHAR(64) NOT NULL,
  body MEDIUMTEXT NOT NULL,
  updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
  PRIMARY KEY (row_key, col_key)
)`
	getEntityStmt    = `SELECT body FROM ` + registryTable + ` WHERE row_key = ? AND col_key = ?`
	upsertEntityStmt = `INSERT INTO ` + registryTable + ` (row_key, col_key, body) VALUES (?, ?, ?) ` +
		`ON DUPLICATE KEY UPDATE body = VALUES(body)`
)

// Config is the connection configuration of the registry database.
type Config struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
}

// String returns the connection string for the DB.
func (d *Config) String() string {
	return fmt.Sprintf(
		"%s:%s@(%s:%d)/%s?parseTime=true",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Database,
	)
}

// Connect opens the database and makes sure the registry table exists.
func (d *Config) Connect(ctx context.Context) (*sqlx.DB, error) {
	log.WithFields(log.Fields{
		"host":     d.Host,
		"port":     d.Port,
		"database": d.Database,
	}).Info("Connecting to registry database")
	db, err := sqlx.ConnectContext(ctx, "mysql", d.String())
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to registry database")
	}
	if err := EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the registry table if it does not exist yet.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, createTableStmt); err != nil {
		return errors.Wrap(err, "failed to create registry table")
	}
	return nil
}

// Registry implements storage.Registry on MySQL. Each record is a json body
// keyed by its id (row_key) and entity type (col_key).
type Registry struct {
	DB      *sqlx.DB
	metrics *storage.RegistryMetrics
}

// NewRegistry creates a Registry on an open database.
func NewRegistry(db *sqlx.DB, scope tally.Scope) *Registry {
	return &Registry{
		DB:      db,
		metrics: storage.NewRegistryMetrics(scope.SubScope("registry")),
	}
}

// Get implements storage.Registry.
func (r *Registry) Get(
	ctx context.Context,
	t storage.EntityType,
	id string) (interface{}, error) {
	r.metrics.Get.Inc(1)

	var body string
	err := r.DB.GetContext(ctx, &body, getEntityStmt, id, t.String())
	if err == sql.ErrNoRows {
		r.metrics.GetNotFound.Inc(1)
		return nil, errors.Wrapf(storage.ErrNotFound, "%v %s", t, id)
	}
	if err != nil {
		r.metrics.GetFail.Inc(1)
		log.WithError(err).WithFields(log.Fields{
			common.DBStmtLogField: getEntityStmt,
			"entity_type":         t.String(),
			"id":                  id,
		}).Error("Failed to read registry entity")
		return nil, errors.Wrapf(err, "failed to read %v %s", t, id)
	}

	entity, err := storage.NewEntity(t)
	if err != nil {
		r.metrics.GetFail.Inc(1)
		return nil, err
	}
	if err := json.Unmarshal([]byte(body), entity); err != nil {
		r.metrics.GetFail.Inc(1)
		return nil, errors.Wrapf(err, "failed to decode %v %s", t, id)
	}
	return entity, nil
}

// Update implements storage.Registry.
func (r *Registry) Update(
	ctx context.Context,
	t storage.EntityType,
	entity interface{},
	id string) error {
	if err := storage.CheckEntity(t, entity); err != nil {
		r.metrics.UpdateFail.Inc(1)
		return err
	}
	body, err := json.Marshal(entity)
	if err != nil {
		r.metrics.UpdateFail.Inc(1)
		return errors.Wrapf(err, "failed to encode %v %s", t, id)
	}

	if _, err := r.DB.ExecContext(ctx, upsertEntityStmt, id, t.String(), string(body)); err != nil {
		r.metrics.UpdateFail.Inc(1)
		log.WithError(err).WithFields(log.Fields{
			common.DBStmtLogField: upsertEntityStmt,
			"entity_type":         t.String(),
			"id":                  id,
		}).Error("Failed to write registry entity")
		return errors.Wrapf(err, "failed to write %v %s", t, id)
	}
	r.metrics.Update.Inc(1)
	return nil
}

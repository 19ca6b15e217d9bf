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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/tomoncle/tablerepo/database"
	"github.com/tomoncle/tablerepo/models"
	"github.com/tomoncle/tablerepo/repository"
	"github.com/tomoncle/tablerepo/utils"
)

const loggerName = "TABLEREPO"

type options struct {
	configPath string
	initScript string
	postID     uint64
	postsTable string
	primaryKey string
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("tablerepo", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := &options{}
	fs.StringVar(&opts.configPath, "config", utils.EnvDefaultString("TABLEREPO_CONFIG", ""), "YAML configuration file")
	fs.StringVar(&opts.initScript, "init", "", "SQL script to execute before querying")
	fs.Uint64Var(&opts.postID, "post-id", 26458, "id of the post to fetch")
	fs.StringVar(&opts.postsTable, "posts-table", models.PostsTable, "posts table name")
	fs.StringVar(&opts.primaryKey, "primary-key", models.PostsPrimaryKey, "primary key column of the posts table (case-sensitive)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return opts, nil
}

func loadConfig(path string) (*database.Config, error) {
	if path == "" {
		return database.DefaultConfig(), nil
	}
	cfg, err := database.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	utils.ConfigureLogLevel(cfg.Log.Level)
	utils.ConfigureConsoleLogFormat(cfg.Log.Format)
	return cfg, nil
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	log := utils.NewLogger(loggerName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.InitDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.CloseDB(); err != nil {
			log.Warnf("failed to close database: %v", err)
		}
	}()

	if opts.initScript != "" {
		res, err := database.NewScriptRunner(db, nil).ExecFile(ctx, opts.initScript)
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{
			"statements": res.Statements,
			"rows":       res.RowsAffected,
			"duration":   res.Duration,
		}).Infof("executed %s", res.Source)
	}

	registry := repository.NewRegistry()
	if err := registry.Register(opts.postsTable, models.Post{}); err != nil {
		return err
	}
	repo := repository.New(db,
		repository.WithRegistry(registry),
		repository.WithPrimaryKey(opts.primaryKey),
	)

	getPosts(ctx, log, repo, opts.postsTable)
	getPost(ctx, log, repo, opts.postsTable, opts.postID)
	return nil
}

func getPosts(ctx context.Context, log *logrus.Logger, repo *repository.Repository, table string) {
	posts, err := repository.FetchAll[models.Post](ctx, repo, table,
		repository.WithCondition("post_type = ?", "post"),
		repository.WithLimit(10),
		repository.WithOffset(0),
	)
	if err != nil {
		log.Debugf("Error fetching posts: %v", err)
		return
	}
	for _, post := range posts {
		log.Debug(post)
	}
}

func getPost(ctx context.Context, log *logrus.Logger, repo *repository.Repository, table string, id uint64) {
	post, err := repository.FetchOne[models.Post](ctx, repo, table, id)
	if err != nil {
		log.Debugf("Error fetching post by id: %v", err)
		return
	}
	log.Debugf("Fetched post: %s", post)
}

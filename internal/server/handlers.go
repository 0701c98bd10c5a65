// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"encoding/json"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/pdiddy/litcurate/internal/filter"
	"github.com/pdiddy/litcurate/internal/index"
	"github.com/pdiddy/litcurate/internal/insight"
	"github.com/pdiddy/litcurate/internal/results"
	"github.com/pdiddy/litcurate/internal/session"
)

func (s *Server) health(c *fiber.Ctx) error {
	n, err := s.ix.CountPapers(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok", "papers": n})
}

func (s *Server) listTasks(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if c.QueryBool("refresh") {
		if err := s.ix.Refresh(ctx); err != nil {
			return err
		}
	}
	reg, err := s.ix.Registry(ctx)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"tasks": reg.All(), "refreshed_at": reg.Refreshed()})
}

func (s *Server) listLabels(c *fiber.Ctx) error {
	labels, err := s.ix.Labels(c.UserContext(), c.Params("task"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"task": c.Params("task"), "labels": labels})
}

func (s *Server) labelFrequency(c *fiber.Ctx) error {
	ctx := c.UserContext()
	task := c.Params("task")

	var (
		freq index.Frequency
		err  error
	)
	if filterTask := c.Query("filter_task"); filterTask != "" {
		filterLabel := c.Query("filter_label")
		if filterLabel == "" {
			return fmt.Errorf("%w: filter_label is required with filter_task", badRequest)
		}
		freq, err = s.ix.FilteredLabelFrequency(ctx, task, filterTask, filterLabel)
	} else {
		freq, err = s.ix.LabelFrequency(ctx, task, queryAll(c, "label"))
	}
	if err != nil {
		return err
	}
	if freq == nil {
		freq = index.Frequency{}
	}
	return c.JSON(fiber.Map{"task": task, "frequency": freq})
}

func (s *Server) groupedLabels(c *fiber.Ctx) error {
	task, groupTask := c.Query("task"), c.Query("group_task")
	if task == "" || groupTask == "" {
		return fmt.Errorf("%w: task and group_task are required", badRequest)
	}
	rows, err := s.ix.GroupedLabels(c.UserContext(), task, groupTask, queryAll(c, "label"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"rows": rows, "counts": index.Aggregate(rows)})
}

func (s *Server) paperIDs(c *fiber.Ctx) error {
	ctx := c.UserContext()
	var (
		ids mapset.Set[int64]
		err error
	)
	if task := c.Query("task"); task != "" {
		ids, err = s.ix.PaperIDs(ctx, task, c.Query("label"))
	} else {
		ids, err = s.ix.AllPaperIDs(ctx)
	}
	if err != nil {
		return err
	}
	cands := filter.FromSet(ids)
	return c.JSON(fiber.Map{"ids": cands.List(), "count": cands.Len()})
}

func (s *Server) createSession(c *fiber.Ctx) error {
	id, err := session.Create(c.UserContext(), s.sessions)
	if err != nil {
		return err
	}
	s.log.Debug("session created", zap.String("session", id))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

func (s *Server) loadSession(c *fiber.Ctx, id string) (*filter.Set, error) {
	if !session.ValidID(id) {
		return nil, fmt.Errorf("%w: %s", session.ErrUnknownSession, id)
	}
	return s.sessions.Load(c.UserContext(), id)
}

// filtersResponse reports the filter set with the number of papers it
// selects out of the corpus.
func (s *Server) filtersResponse(c *fiber.Ctx, set *filter.Set) error {
	ctx := c.UserContext()
	cands, err := s.resolver.Resolve(ctx, set)
	if err != nil {
		return err
	}
	total, err := s.ix.CountPapers(ctx)
	if err != nil {
		return err
	}
	selected := cands.Len()
	if cands.Unrestricted() {
		selected = total
	}
	return c.JSON(fiber.Map{"filters": set, "selected": selected, "total": total})
}

func (s *Server) getFilters(c *fiber.Ctx) error {
	set, err := s.loadSession(c, c.Params("id"))
	if err != nil {
		return err
	}
	return s.filtersResponse(c, set)
}

func (s *Server) addFilter(c *fiber.Ctx) error {
	id := c.Params("id")
	set, err := s.loadSession(c, id)
	if err != nil {
		return err
	}

	var req filter.Entry
	if err := c.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: %v", badRequest, err)
	}
	if _, err := s.ix.Labels(c.UserContext(), req.Task); err != nil {
		return err
	}
	if err := set.Add(req.Task, req.Labels); err != nil {
		return err
	}
	if err := s.sessions.Save(c.UserContext(), id, set); err != nil {
		return err
	}
	return s.filtersResponse(c, set)
}

// removeFilter drops one label, one task, or, with no task given, every
// filter of the session.
func (s *Server) removeFilter(c *fiber.Ctx) error {
	id := c.Params("id")
	set, err := s.loadSession(c, id)
	if err != nil {
		return err
	}

	task, label := c.Query("task"), c.Query("label")
	switch {
	case task == "":
		set.Clear()
	case label == "":
		set.RemoveTask(task)
	default:
		set.RemoveLabel(task, label)
	}
	if err := s.sessions.Save(c.UserContext(), id, set); err != nil {
		return err
	}
	return s.filtersResponse(c, set)
}

type rowsRequest struct {
	results.PageRequest
	RawFilterModel json.RawMessage `json:"filterModel"`
}

func (s *Server) rows(c *fiber.Ctx) error {
	ctx := c.UserContext()
	set, err := s.loadSession(c, c.Params("id"))
	if err != nil {
		return err
	}

	var req rowsRequest
	if err := c.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: %v", badRequest, err)
	}
	if req.PageRequest.FilterModel, err = results.ParseFilterModel(string(req.RawFilterModel)); err != nil {
		return err
	}

	cands, err := s.resolver.Resolve(ctx, set)
	if err != nil {
		return err
	}
	page, err := s.results.Page(ctx, cands, set, req.PageRequest)
	if err != nil {
		return err
	}
	return c.JSON(page)
}

func (s *Server) export(c *fiber.Ctx) error {
	ctx := c.UserContext()
	set, err := s.loadSession(c, c.Params("id"))
	if err != nil {
		return err
	}
	cands, err := s.resolver.Resolve(ctx, set)
	if err != nil {
		return err
	}
	table, err := s.results.Export(ctx, cands, set)
	if err != nil {
		return err
	}

	switch format := c.Query("format", "csv"); format {
	case "csv":
		c.Attachment("litcurate-export.csv")
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		return table.WriteCSV(c)
	case "json":
		return c.JSON(table)
	default:
		return fmt.Errorf("%w: unsupported export format %q", badRequest, format)
	}
}

func (s *Server) paper(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fmt.Errorf("%w: invalid paper id %q", badRequest, c.Params("id"))
	}

	set := &filter.Set{}
	if sid := c.Query("session"); sid != "" {
		if set, err = s.loadSession(c, sid); err != nil {
			return err
		}
	}

	detail, err := s.results.Detail(c.UserContext(), int64(id), set)
	if err != nil {
		return err
	}
	return c.JSON(detail)
}

func (s *Server) listInsights(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"insights": insight.Catalog()})
}

func (s *Server) runInsight(c *fiber.Ctx) error {
	res, err := s.insights.Run(c.UserContext(), c.Params("name"))
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (s *Server) dualTask(c *fiber.Ctx) error {
	v, err := s.insights.DualTask(c.UserContext(), c.Query("task1"), c.Query("task2"), c.Query("label"))
	if err != nil {
		return err
	}
	return c.JSON(v)
}

func (s *Server) timeline(c *fiber.Ctx) error {
	v, err := s.insights.Timeline(c.UserContext(), c.QueryInt("from"), c.QueryInt("to"))
	if err != nil {
		return err
	}
	return c.JSON(v)
}

// queryAll returns every value of a repeated query parameter.
func queryAll(c *fiber.Ctx, key string) []string {
	var out []string
	for _, v := range c.Context().QueryArgs().PeekMulti(key) {
		if len(v) > 0 {
			out = append(out, string(v))
		}
	}
	return out
}

package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/gostpanel/console/internal/models"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Paginated wraps one page of a listing
type Paginated[T any] struct {
	Data     []T   `json:"data"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

type pageQuery struct {
	Page     int
	PageSize int
	Search   string
}

func parsePage(c *gin.Context) pageQuery {
	q := pageQuery{Page: 1, PageSize: defaultPageSize, Search: strings.TrimSpace(c.Query("search"))}
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		q.Page = v
	}
	if v, err := strconv.Atoi(c.Query("page_size")); err == nil && v > 0 {
		q.PageSize = min(v, maxPageSize)
	}
	return q
}

// paginate runs query for one page. Search matches any of columns;
// preloads apply to the page only, not the count.
func paginate[T any](query *gorm.DB, q pageQuery, columns []string, preloads ...string) (*Paginated[T], error) {
	if q.Search != "" && len(columns) > 0 {
		clauses := make([]string, len(columns))
		args := make([]any, len(columns))
		for i, col := range columns {
			clauses[i] = col + " LIKE ?"
			args[i] = "%" + q.Search + "%"
		}
		query = query.Where(strings.Join(clauses, " OR "), args...)
	}
	// Count and Find each start from the same conditions.
	query = query.Session(&gorm.Session{})

	var model T
	var total int64
	if err := query.Model(&model).Count(&total).Error; err != nil {
		return nil, err
	}

	find := query
	for _, p := range preloads {
		find = find.Preload(p)
	}
	items := make([]T, 0, q.PageSize)
	if err := find.Order("id DESC").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&items).Error; err != nil {
		return nil, err
	}

	return &Paginated[T]{Data: items, Total: total, Page: q.Page, PageSize: q.PageSize}, nil
}

// listAll answers with every row of T.
func listAll[T any](s *Server, c *gin.Context, query *gorm.DB, what string) {
	items := make([]T, 0)
	if err := query.Order("id").Find(&items).Error; err != nil {
		s.internalError(c, err, "Failed to list "+what)
		return
	}
	c.JSON(http.StatusOK, items)
}

// listPage answers with one page of T.
func listPage[T any](s *Server, c *gin.Context, query *gorm.DB, what string, columns []string, preloads ...string) {
	page, err := paginate[T](query, parsePage(c), columns, preloads...)
	if err != nil {
		s.internalError(c, err, "Failed to list "+what)
		return
	}
	c.JSON(http.StatusOK, page)
}

// StatsResponse summarises the fleet
type StatsResponse struct {
	TotalNodes       int64 `json:"total_nodes"`
	OnlineNodes      int64 `json:"online_nodes"`
	TotalClients     int64 `json:"total_clients"`
	OnlineClients    int64 `json:"online_clients"`
	TotalUsers       int64 `json:"total_users"`
	TotalTrafficIn   int64 `json:"total_traffic_in"`
	TotalTrafficOut  int64 `json:"total_traffic_out"`
	TotalConnections int64 `json:"total_connections"`
}

func (s *Server) getStats(c *gin.Context) {
	var stats StatsResponse
	var nodeSums struct {
		In          int64
		Out         int64
		Connections int64
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		counts := []struct {
			query *gorm.DB
			dest  *int64
		}{
			{tx.Model(&models.Node{}), &stats.TotalNodes},
			{tx.Model(&models.Node{}).Where("status = ?", "online"), &stats.OnlineNodes},
			{tx.Model(&models.Client{}), &stats.TotalClients},
			{tx.Model(&models.Client{}).Where("status = ?", "online"), &stats.OnlineClients},
			{tx.Model(&models.User{}), &stats.TotalUsers},
		}
		for _, count := range counts {
			if err := count.query.Count(count.dest).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.Node{}).
			Select("COALESCE(SUM(traffic_in), 0) AS `in`, COALESCE(SUM(traffic_out), 0) AS `out`, COALESCE(SUM(connections), 0) AS connections").
			Scan(&nodeSums).Error
	})
	if err != nil {
		s.internalError(c, err, "Failed to compute stats")
		return
	}

	stats.TotalTrafficIn = nodeSums.In
	stats.TotalTrafficOut = nodeSums.Out
	stats.TotalConnections = nodeSums.Connections
	c.JSON(http.StatusOK, stats)
}

func (s *Server) getSiteConfig(c *gin.Context) {
	var rows []models.SiteConfig
	if err := s.db.Find(&rows).Error; err != nil {
		s.internalError(c, err, "Failed to load site config")
		return
	}

	out := gin.H{}
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) listNodes(c *gin.Context) {
	listPage[models.Node](s, c, s.db, "nodes", []string{"name", "host"})
}

func (s *Server) listClients(c *gin.Context) {
	listPage[models.Client](s, c, s.db, "clients", []string{"name"}, "Node")
}

func (s *Server) listUsers(c *gin.Context) {
	listPage[models.User](s, c, s.db, "users", []string{"username", "email"})
}

// listOperationLogs shows admins every entry and other users their own.
func (s *Server) listOperationLogs(c *gin.Context) {
	sessionData, _ := GetSessionData(c)
	query := s.db
	if !sessionData.IsAdmin() {
		query = query.Where("user_id = ?", sessionData.UserID)
	}
	listPage[models.OperationLog](s, c, query, "operation logs", []string{"action", "username", "resource"})
}

func (s *Server) listNotifyChannels(c *gin.Context) {
	listAll[models.NotifyChannel](s, c, s.db, "notify channels")
}

func (s *Server) listPortForwards(c *gin.Context) {
	listAll[models.PortForward](s, c, s.db.Preload("Node"), "port forwards")
}

func (s *Server) listNodeGroups(c *gin.Context) {
	listAll[models.NodeGroup](s, c, s.db.Preload("Members.Node"), "node groups")
}

func (s *Server) listProxyChains(c *gin.Context) {
	listAll[models.ProxyChain](s, c, s.db.Preload("Hops", func(db *gorm.DB) *gorm.DB {
		return db.Order("hop_order")
	}).Preload("Hops.Node"), "proxy chains")
}

func (s *Server) listTunnels(c *gin.Context) {
	listAll[models.Tunnel](s, c, s.db.Preload("EntryNode").Preload("ExitNode"), "tunnels")
}

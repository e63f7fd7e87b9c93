package server

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wmachuca/localstack-studio/internal/domain"
)

func (s *Server) handleListTables(c echo.Context) error {
	tables, err := s.tables.ListTables(c.Request().Context())
	if err != nil {
		slog.Error("Failed to list tables", "error", err)
		return storeError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"tables": tables})
}

func (s *Server) handleDescribeTable(c echo.Context) error {
	table := c.Param("table")

	description, err := s.tables.DescribeTable(c.Request().Context(), table)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, description)
}

type createTableRequest struct {
	TableName            string                       `json:"tableName"`
	KeySchema            []domain.KeySchemaElement    `json:"keySchema"`
	AttributeDefinitions []domain.AttributeDefinition `json:"attributeDefinitions"`
	BillingMode          string                       `json:"billingMode"`
}

func (s *Server) handleCreateTable(c echo.Context) error {
	var req createTableRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.TableName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "tableName is required")
	}
	if len(req.KeySchema) == 0 || len(req.AttributeDefinitions) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "keySchema and attributeDefinitions are required")
	}

	result, err := s.tables.CreateTable(c.Request().Context(), domain.CreateTableParams{
		Name:                 req.TableName,
		KeySchema:            req.KeySchema,
		AttributeDefinitions: req.AttributeDefinitions,
		BillingMode:          req.BillingMode,
	})
	if err != nil {
		slog.Error("Failed to create table", "table", req.TableName, "error", err)
		return storeError(err)
	}

	slog.Info("Table created", "table", req.TableName)
	return c.JSON(http.StatusCreated, result)
}

func (s *Server) handleDeleteTable(c echo.Context) error {
	table := c.Param("table")

	if err := s.tables.DeleteTable(c.Request().Context(), table); err != nil {
		return storeError(err)
	}

	slog.Info("Table deleted", "table", table)
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

type scanTableRequest struct {
	Limit             int32       `json:"limit"`
	ExclusiveStartKey domain.Item `json:"exclusiveStartKey"`
}

func (s *Server) handleScanTable(c echo.Context) error {
	table := c.Param("table")

	var req scanTableRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	page, err := s.tables.ScanTable(c.Request().Context(), table, req.Limit, req.ExclusiveStartKey)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, page)
}

type queryTableRequest struct {
	KeyConditionExpression    string         `json:"keyConditionExpression"`
	ExpressionAttributeValues map[string]any `json:"expressionAttributeValues"`
	IndexName                 string         `json:"indexName"`
	Limit                     int32          `json:"limit"`
	ExclusiveStartKey         domain.Item    `json:"exclusiveStartKey"`
}

func (s *Server) handleQueryTable(c echo.Context) error {
	table := c.Param("table")

	var req queryTableRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.KeyConditionExpression == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "keyConditionExpression is required")
	}

	page, err := s.tables.QueryTable(c.Request().Context(), table, domain.QueryParams{
		KeyConditionExpression:    req.KeyConditionExpression,
		ExpressionAttributeValues: req.ExpressionAttributeValues,
		IndexName:                 req.IndexName,
		Limit:                     req.Limit,
		ExclusiveStartKey:         req.ExclusiveStartKey,
	})
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, page)
}

type itemKeyRequest struct {
	Key domain.Item `json:"key"`
}

func (s *Server) handleGetItem(c echo.Context) error {
	table := c.Param("table")

	var req itemKeyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Key) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "key is required")
	}

	item, err := s.tables.GetItem(c.Request().Context(), table, req.Key)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"item": item})
}

type putItemRequest struct {
	Item domain.Item `json:"item"`
}

func (s *Server) handlePutItem(c echo.Context) error {
	table := c.Param("table")

	var req putItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Item) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "item is required")
	}

	if err := s.tables.PutItem(c.Request().Context(), table, req.Item); err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"status": "stored"})
}

func (s *Server) handleDeleteItem(c echo.Context) error {
	table := c.Param("table")

	var req itemKeyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Key) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "key is required")
	}

	if err := s.tables.DeleteItem(c.Request().Context(), table, req.Key); err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

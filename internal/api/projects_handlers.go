package api

import (
	"encoding/json"
	"net/http"
	"time"

	"ammindexer/internal/models"

	"github.com/shopspring/decimal"
)

type projectRequest struct {
	ProjectName     string          `json:"project_name"`
	Description     string          `json:"description"`
	Links           json.RawMessage `json:"links"`
	Title           string          `json:"title"`
	Pic             string          `json:"pic"`
	Owner           string          `json:"owner"`
	ReceiveToken    string          `json:"receive_token"`
	TokenSymbol     string          `json:"token_symbol"`
	TokenAddress    string          `json:"token_address"`
	TokenPriceUSD   string          `json:"token_price_usd"`
	PresaleStart    time.Time       `json:"presale_start"`
	PresaleEnd      time.Time       `json:"presale_end"`
	PublicSaleStart time.Time       `json:"pubsale_start"`
	PublicSaleEnd   time.Time       `json:"pubsale_end"`
	MinInvest       string          `json:"min_invest"`
	MaxInvest       string          `json:"max_invest"`
	Paused          bool            `json:"paused"`
}

func (req projectRequest) toProject() (models.Project, error) {
	price, err := decimal.NewFromString(req.TokenPriceUSD)
	if err != nil {
		return models.Project{}, err
	}
	return models.Project{
		ProjectName: req.ProjectName, Description: req.Description, Links: req.Links,
		Title: req.Title, Pic: req.Pic, Owner: req.Owner, ReceiveToken: req.ReceiveToken,
		TokenSymbol: req.TokenSymbol, TokenAddress: req.TokenAddress, TokenPriceUSD: price,
		PresaleStart: req.PresaleStart, PresaleEnd: req.PresaleEnd,
		PublicSaleStart: req.PublicSaleStart, PublicSaleEnd: req.PublicSaleEnd,
		MinInvest: req.MinInvest, MaxInvest: req.MaxInvest, Paused: req.Paused,
	}, nil
}

// handleCreateProject implements POST /create_project, registering a
// project ahead of its on-chain ProjectCreated event (§4.1 step 3 fills
// in the address once the indexer observes it).
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDBErr(w, "invalid request body")
		return
	}
	p, err := req.toProject()
	if err != nil {
		writeDBErr(w, "invalid token_price_usd")
		return
	}
	if err := s.repo.CreateProject(r.Context(), p); err != nil {
		writeDBErr(w, "create project failed")
		return
	}
	writeOK(w, p)
}

// handleUpdateProject implements PUT /update_project.
func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDBErr(w, "invalid request body")
		return
	}
	p, err := req.toProject()
	if err != nil {
		writeDBErr(w, "invalid token_price_usd")
		return
	}
	if err := s.repo.UpdateProject(r.Context(), p); err != nil {
		writeDBErr(w, "update project failed")
		return
	}
	writeOK(w, p)
}

// handleGetAllProjects implements GET /get_all_projects?pg_no=.
func (s *Server) handleGetAllProjects(w http.ResponseWriter, r *http.Request) {
	pageNo := pageNoFromQuery(r)
	projects, err := s.repo.ListProjects(r.Context(), pageNo, pageSize)
	if err != nil {
		writeDBErr(w, "get all projects failed")
		return
	}
	writeOK(w, projects)
}

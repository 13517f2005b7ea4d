package api

import "github.com/gorilla/mux"

func registerRoutes(r *mux.Router, s *Server) {
	r.HandleFunc("/get_all_pools", s.handleGetAllPools).Methods("GET", "OPTIONS")
	r.HandleFunc("/get_all_transactions", s.handleGetAllTransactions).Methods("GET", "OPTIONS")
	r.HandleFunc("/get_total_tvl_by_day", s.handleGetTotalTVLByDay).Methods("GET", "OPTIONS")
	r.HandleFunc("/get_total_volume_by_day", s.handleGetTotalVolumeByDay).Methods("GET", "OPTIONS")
	r.HandleFunc("/get_pair_statistic_info", s.handleGetPairStatisticInfo).Methods("GET", "OPTIONS")

	r.HandleFunc("/create_project", s.handleCreateProject).Methods("POST", "OPTIONS")
	r.HandleFunc("/update_project", s.handleUpdateProject).Methods("PUT", "OPTIONS")
	r.HandleFunc("/get_all_projects", s.handleGetAllProjects).Methods("GET", "OPTIONS")
}

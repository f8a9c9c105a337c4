package internal

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"asset-inventory-api/internal/auth"
	"asset-inventory-api/internal/models"

	"golang.org/x/crypto/bcrypt"
)

var userSortKeys = map[string]string{
	"id":         "id",
	"username":   "username",
	"email":      "email",
	"role":       "role",
	"created_at": "created_at",
}

func scanUser(row interface{ Scan(...any) error }, u *models.User) error {
	var fullName sql.NullString
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &fullName, &u.Role, &u.CreatedAt); err != nil {
		return err
	}
	if fullName.Valid {
		u.FullName = &fullName.String
	}
	return nil
}

const userColumns = "id, username, email, password_hash, full_name, role, created_at"

// loginUser handles user authentication
func (s *Server) loginUser(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	var user models.User
	err := scanUser(s.DB.QueryRowContext(r.Context(),
		"SELECT "+userColumns+" FROM users WHERE username = $1", req.Username), &user)
	if err == sql.ErrNoRows {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := s.JWTManager.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, models.LoginResponse{Token: token, User: user})
}

// registerUser handles self-service signup. New accounts always get the
// "user" role; only an admin can promote them afterwards.
func (s *Server) registerUser(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		http.Error(w, "Username, email and password are required", http.StatusBadRequest)
		return
	}
	if len(req.Password) < 8 {
		http.Error(w, "Password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	user := models.User{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Role:     auth.RoleUser,
	}
	err = s.DB.QueryRowContext(r.Context(), `
		INSERT INTO users (username, email, password_hash, full_name, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		req.Username, req.Email, string(hashed), req.FullName, auth.RoleUser,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			http.Error(w, "User with this username or email already exists", http.StatusConflict)
			return
		}
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// createUser handles admin user creation with an explicit role.
func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" || req.Role == "" {
		http.Error(w, "Username, email, password and role are required", http.StatusBadRequest)
		return
	}
	if !auth.ValidRole(req.Role) {
		http.Error(w, "Invalid role provided", http.StatusBadRequest)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	user := models.User{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Role:     req.Role,
	}
	err = s.DB.QueryRowContext(r.Context(), `
		INSERT INTO users (username, email, password_hash, full_name, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		req.Username, req.Email, string(hashed), req.FullName, req.Role,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			http.Error(w, "User with this username or email already exists", http.StatusConflict)
			return
		}
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// listUsers handles user listing with search and sorting.
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)

	query := "SELECT " + userColumns + ", COUNT(*) OVER() AS total_count FROM users"
	args := []any{}
	if params.q != "" {
		query += " WHERE (username ILIKE $1 OR email ILIKE $1 OR full_name ILIKE $1)"
		args = append(args, "%"+params.q+"%")
	}
	query += buildOrderBy(params.sort, userSortKeys)
	query += " LIMIT " + strconv.Itoa(params.limit) + " OFFSET " + strconv.Itoa(params.offset)

	rows, err := s.DB.QueryContext(r.Context(), query, args...)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	users := []models.User{}
	var totalCount int
	for rows.Next() {
		var u models.User
		var fullName sql.NullString
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &fullName, &u.Role, &u.CreatedAt, &totalCount); err != nil {
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}
		if fullName.Valid {
			u.FullName = &fullName.String
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data": users,
		"meta": map[string]any{"total": totalCount, "limit": params.limit, "offset": params.offset},
	})
}

// getUser handles fetching a single user by id.
func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := entityID(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var user models.User
	err := scanUser(s.DB.QueryRowContext(r.Context(),
		"SELECT "+userColumns+" FROM users WHERE id = $1", id), &user)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// updateUser handles admin updates to email, full name and role.
func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := entityID(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req models.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sets := []string{}
	args := []any{}
	if req.Email != nil {
		args = append(args, *req.Email)
		sets = append(sets, "email = $"+strconv.Itoa(len(args)))
	}
	if req.FullName != nil {
		args = append(args, *req.FullName)
		sets = append(sets, "full_name = $"+strconv.Itoa(len(args)))
	}
	if req.Role != nil {
		if !auth.ValidRole(*req.Role) {
			http.Error(w, "Invalid role provided", http.StatusBadRequest)
			return
		}
		args = append(args, *req.Role)
		sets = append(sets, "role = $"+strconv.Itoa(len(args)))
	}
	if len(sets) == 0 {
		http.Error(w, "no fields to update", http.StatusBadRequest)
		return
	}

	args = append(args, id)
	query := "UPDATE users SET " + strings.Join(sets, ", ") +
		" WHERE id = $" + strconv.Itoa(len(args)) + " RETURNING " + userColumns

	var user models.User
	err := scanUser(s.DB.QueryRowContext(r.Context(), query, args...), &user)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			http.Error(w, "User with this email already exists", http.StatusConflict)
			return
		}
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// deleteUser handles admin user deletion. Admins cannot delete themselves.
func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := entityID(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	claims := auth.ClaimsFromContext(r.Context())
	if claims != nil && claims.UserID == id {
		http.Error(w, "Cannot delete your own account", http.StatusBadRequest)
		return
	}

	res, err := s.DB.ExecContext(r.Context(), "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getUserProfile returns the authenticated user's own record.
func (s *Server) getUserProfile(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var user models.User
	err := scanUser(s.DB.QueryRowContext(r.Context(),
		"SELECT "+userColumns+" FROM users WHERE id = $1", claims.UserID), &user)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// changePassword verifies the current password before storing a new hash.
func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req models.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		http.Error(w, "Current and new passwords are required", http.StatusBadRequest)
		return
	}
	if len(req.NewPassword) < 8 {
		http.Error(w, "Password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	var currentHash string
	err := s.DB.QueryRowContext(r.Context(),
		"SELECT password_hash FROM users WHERE id = $1", claims.UserID).Scan(&currentHash)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(currentHash), []byte(req.CurrentPassword)); err != nil {
		http.Error(w, "Current password is incorrect", http.StatusUnauthorized)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	if _, err := s.DB.ExecContext(r.Context(),
		"UPDATE users SET password_hash = $1 WHERE id = $2", string(hashed), claims.UserID); err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

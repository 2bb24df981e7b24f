// Package client is a Go client for the auth API. It keeps what a browser
// front end would show about the session in an explicit State value that
// callers own and pass to every call.
package client

import "time"

// User is the public view of an account returned by the API.
type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	IsVerified bool      `json:"isVerified"`
	LastLogin  time.Time `json:"lastLogin"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// State is the client-visible session. It is plain data and safe to
// serialize; it is not safe for concurrent use.
type State struct {
	User            *User  `json:"user"`
	IsAuthenticated bool   `json:"isAuthenticated"`
	Error           string `json:"error,omitempty"`
	Message         string `json:"message,omitempty"`
	IsLoading       bool   `json:"isLoading"`
	IsCheckingAuth  bool   `json:"isCheckingAuth"`
}

// NewState returns the state of a client that has not yet asked the server
// whether it holds a session.
func NewState() *State {
	return &State{IsCheckingAuth: true}
}

func (s *State) begin() {
	s.IsLoading = true
	s.Error = ""
}

func (s *State) authenticated(user *User) {
	s.User = user
	s.IsAuthenticated = true
	s.IsLoading = false
	s.Error = ""
}

func (s *State) failed(message string) {
	s.Error = message
	s.IsLoading = false
}

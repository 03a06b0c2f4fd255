package domain

import (
	"fmt"
	"strings"
	"time"
)

// Store is a partner store that guests are guided to.
type Store struct {
	ID                string
	Name              string
	BranchName        string
	Area              string
	Terms             OptionalTerms
	MalePrice         *int
	RemainingRequests int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AdmitsMales reports whether male guests may be guided. A male price of 0 means they may not;
// an unset price places no restriction.
func (s Store) AdmitsMales() bool {
	return s.MalePrice == nil || *s.MalePrice != 0
}

// DisplayName joins name and branch the way the dashboard lists stores.
func (s Store) DisplayName() string {
	branch := strings.TrimSpace(s.BranchName)
	if branch == "" {
		return s.Name
	}
	return fmt.Sprintf("%s %s", s.Name, branch)
}

package domain

import "time"

type AccountID string
type MessageID string

type Role string

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

// Source tags the surface a message was sent from.
type Source string

const (
	SourceLandingPage   Source = "Landing Page"
	SourcePortfolioView Source = "Portfolio View"
	SourceJobRequest    Source = "Job Request"
	SourceAdminRequest  Source = "Admin Request"
)

const DefaultSenderName = "Anonymous"

type Timestamp = time.Time

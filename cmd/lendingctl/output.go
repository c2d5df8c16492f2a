package main

import (
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/mediatheque-go/lending/core"
	"github.com/mediatheque-go/lending/eligibility"
	"github.com/mediatheque-go/lending/lifecycle"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type itemView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Available  bool   `json:"available"`
	Borrowable bool   `json:"borrowable"`
}

type memberView struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Blocked bool   `json:"blocked"`
	Active  bool   `json:"active"`
}

type ruleView struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	MaxConcurrentLoans int    `json:"max_concurrent_loans"`
	Active             bool   `json:"active"`
}

type loanView struct {
	ID         string     `json:"id"`
	MemberID   string     `json:"member_id"`
	ItemID     string     `json:"item_id"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	DueAt      time.Time  `json:"due_at"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
	State      string     `json:"state,omitempty"`
}

type standingView struct {
	MemberID      string     `json:"member_id"`
	OpenLoanCount int        `json:"open_loan_count"`
	EarliestDueAt *time.Time `json:"earliest_due_at,omitempty"`
	Overdue       bool       `json:"overdue"`
	Limit         int        `json:"limit"`
	Remaining     int        `json:"remaining"`
}

type decisionView struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason"`
}

type simulationView struct {
	ItemID    string         `json:"item_id"`
	Members   int            `json:"members"`
	Successes int            `json:"successes"`
	Failures  map[string]int `json:"failures"`
	Winner    string         `json:"winner,omitempty"`
}

func (a *app) print(v any) error {
	encoder := json.NewEncoder(a.out)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}

func toItemView(item core.Item) itemView {
	return itemView{
		ID:         item.ID.String(),
		Name:       item.Name,
		Kind:       string(item.Kind),
		Available:  item.Available,
		Borrowable: item.Borrowable,
	}
}

func toItemViews(items []core.Item) []itemView {
	views := make([]itemView, 0, len(items))
	for _, item := range items {
		views = append(views, toItemView(item))
	}

	return views
}

func toMemberView(member core.Member) memberView {
	return memberView{
		ID:      member.ID.String(),
		Name:    member.Name,
		Email:   member.Email,
		Blocked: member.Blocked,
		Active:  member.Active,
	}
}

func toMemberViews(members []core.Member) []memberView {
	views := make([]memberView, 0, len(members))
	for _, member := range members {
		views = append(views, toMemberView(member))
	}

	return views
}

func toRuleView(rule core.BorrowingRule) ruleView {
	return ruleView{
		ID:                 rule.ID.String(),
		Name:               rule.Name,
		MaxConcurrentLoans: rule.MaxConcurrentLoans,
		Active:             rule.Active,
	}
}

func toRuleViews(rules []core.BorrowingRule) []ruleView {
	views := make([]ruleView, 0, len(rules))
	for _, rule := range rules {
		views = append(views, toRuleView(rule))
	}

	return views
}

func toLoanView(loan core.Loan, state core.LoanState) loanView {
	return loanView{
		ID:         loan.ID.String(),
		MemberID:   loan.MemberID.String(),
		ItemID:     loan.ItemID.String(),
		BorrowedAt: loan.BorrowedAt,
		DueAt:      loan.DueAt,
		ReturnedAt: loan.ReturnedAt,
		State:      string(state),
	}
}

func toLoanViews(views []lifecycle.LoanView) []loanView {
	out := make([]loanView, 0, len(views))
	for _, view := range views {
		out = append(out, toLoanView(view.Loan, view.State))
	}

	return out
}

func toStandingView(standing lifecycle.MemberStanding) standingView {
	view := standingView{
		MemberID:      standing.MemberID.String(),
		OpenLoanCount: standing.OpenLoanCount,
		Overdue:       standing.Overdue,
		Limit:         standing.Limit,
		Remaining:     standing.Remaining(),
	}

	if !standing.EarliestDueAt.IsZero() {
		earliest := standing.EarliestDueAt
		view.EarliestDueAt = &earliest
	}

	return view
}

func toDecisionView(decision eligibility.Decision) decisionView {
	return decisionView{Eligible: decision.Eligible, Reason: string(decision.Reason)}
}

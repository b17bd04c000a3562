package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"propdesk/auth"
	"propdesk/companies"
	"propdesk/users"
)

// CompanyLister is satisfied by companies.Service.
type CompanyLister interface {
	List(ctx context.Context) ([]companies.Company, error)
}

// UserLister is satisfied by users.Service.
type UserLister interface {
	List(ctx context.Context) ([]users.Account, error)
}

// Identity is satisfied by auth.Service.
type Identity interface {
	CurrentUser(ctx context.Context) (*auth.User, error)
}

// Count is one bucket of a breakdown.
type Count struct {
	Key   string
	Count int
}

// Summary is the landing view of the dashboard.
type Summary struct {
	User              *auth.User
	Companies         int
	CompaniesByStatus []Count
	Properties        int
	ActiveProperties  int
	PortfolioValue    float64
	Users             int
	UsersByType       []Count
}

// Loader fans out the requests behind a Summary.
type Loader struct {
	identity  Identity
	companies CompanyLister
	users     UserLister
}

func NewLoader(identity Identity, c CompanyLister, u UserLister) *Loader {
	return &Loader{identity: identity, companies: c, users: u}
}

// Summary loads the current user, companies and users concurrently. The
// first failure cancels the remaining requests.
func (l *Loader) Summary(ctx context.Context) (Summary, error) {
	var (
		user *auth.User
		cs   []companies.Company
		us   []users.Account
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = l.identity.CurrentUser(gctx)
		if err != nil {
			return fmt.Errorf("dashboard: current user: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		cs, err = l.companies.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		us, err = l.users.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	out := Summary{User: user, Companies: len(cs), Users: len(us)}
	statuses := make(map[string]int)
	for _, c := range cs {
		statuses[bucket(c.Status)]++
		out.Properties += c.TotalProperties
		out.ActiveProperties += c.ActiveProperties
		out.PortfolioValue += c.Value()
	}
	types := make(map[string]int)
	for _, u := range us {
		types[bucket(u.UserType)]++
	}
	out.CompaniesByStatus = sorted(statuses)
	out.UsersByType = sorted(types)
	return out, nil
}

func bucket(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "unknown"
	}
	return v
}

// sorted orders buckets by count, then key.
func sorted(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

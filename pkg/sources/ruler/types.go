package ruler

// RuleGroupConfig is one group of a ruler configuration document
type RuleGroupConfig struct {
	Name     string       `yaml:"name" json:"name"`
	Interval string       `yaml:"interval,omitempty" json:"interval,omitempty"`
	Rules    []RuleConfig `yaml:"rules" json:"rules"`
}

// RuleConfig is a Prometheus-style rule or a Grafana-managed rule
type RuleConfig struct {
	Alert         string            `yaml:"alert,omitempty" json:"alert,omitempty"`
	Record        string            `yaml:"record,omitempty" json:"record,omitempty"`
	Expr          string            `yaml:"expr,omitempty" json:"expr,omitempty"`
	For           string            `yaml:"for,omitempty" json:"for,omitempty"`
	KeepFiringFor string            `yaml:"keep_firing_for,omitempty" json:"keep_firing_for,omitempty"`
	Labels        map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
	Annotations   map[string]string `yaml:"annotations,omitempty" json:"annotations,omitempty"`
	GrafanaAlert  *GrafanaAlert     `yaml:"grafana_alert,omitempty" json:"grafana_alert,omitempty"`
}

// GrafanaAlert holds the Grafana-managed part of a rule
type GrafanaAlert struct {
	UID       string       `yaml:"uid,omitempty" json:"uid,omitempty"`
	Title     string       `yaml:"title" json:"title"`
	Condition string       `yaml:"condition,omitempty" json:"condition,omitempty"`
	Data      []AlertQuery `yaml:"data,omitempty" json:"data,omitempty"`
}

// AlertQuery is one query or expression step of a Grafana-managed rule
type AlertQuery struct {
	RefID string     `yaml:"refId" json:"refId"`
	Model QueryModel `yaml:"model" json:"model"`
}

// QueryModel keeps the datasource query text; other model fields are ignored
type QueryModel struct {
	Expr       string `yaml:"expr,omitempty" json:"expr,omitempty"`
	Expression string `yaml:"expression,omitempty" json:"expression,omitempty"`
}

// Name returns alert, else record, else the Grafana title
func (r RuleConfig) Name() string {
	switch {
	case r.Alert != "":
		return r.Alert
	case r.Record != "":
		return r.Record
	case r.GrafanaAlert != nil:
		return r.GrafanaAlert.Title
	default:
		return ""
	}
}

// Query returns expr, or for Grafana-managed rules the first datasource query expr
func (r RuleConfig) Query() string {
	if r.Expr != "" || r.GrafanaAlert == nil {
		return r.Expr
	}
	for _, q := range r.GrafanaAlert.Data {
		if q.Model.Expr != "" {
			return q.Model.Expr
		}
	}
	return ""
}

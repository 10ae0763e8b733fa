package commands

import (
	"fmt"
	"strconv"
	"strings"
)

// DialplanType selects how the application list of an originate is written.
type DialplanType string

const (
	DialplanNone   DialplanType = ""
	DialplanInline DialplanType = "inline"
	DialplanXML    DialplanType = "XML"
)

// ParseDialplanType parses "inline" or "XML", ignoring case.
func ParseDialplanType(s string) (DialplanType, error) {
	switch {
	case strings.EqualFold(s, string(DialplanInline)):
		return DialplanInline, nil
	case strings.EqualFold(s, string(DialplanXML)):
		return DialplanXML, nil
	default:
		return DialplanNone, fmt.Errorf("%w: unknown dialplan %q", ErrOriginateSyntax, s)
	}
}

// VariablesType is the scope of a variable block, which decides its brackets.
type VariablesType int

const (
	// DefaultVariables, {a=1,b=2}, apply to every leg of the originate.
	DefaultVariables VariablesType = iota
	// ChannelVariables, [a=1,b=2], apply to one leg.
	ChannelVariables
	// EnterpriseVariables, <a=1:_:b=2>, apply across enterprise originates.
	EnterpriseVariables
)

func (t VariablesType) delimiters() (opening, closing byte, sep string) {
	switch t {
	case ChannelVariables:
		return '[', ']', ","
	case EnterpriseVariables:
		return '<', '>', ":_:"
	default:
		return '{', '}', ","
	}
}

func variablesTypeFor(opening byte) (VariablesType, bool) {
	switch opening {
	case '{':
		return DefaultVariables, true
	case '[':
		return ChannelVariables, true
	case '<':
		return EnterpriseVariables, true
	default:
		return 0, false
	}
}

// Variables is an ordered set of channel variables.
type Variables struct {
	Type VariablesType

	keys   []string
	values map[string]string
}

// NewVariables creates an empty set.
func NewVariables(t VariablesType) *Variables {
	return &Variables{Type: t, values: make(map[string]string)}
}

// Set adds or replaces a variable. New keys keep insertion order.
func (v *Variables) Set(key, value string) *Variables {
	if _, ok := v.values[key]; !ok {
		v.keys = append(v.keys, key)
	}
	v.values[key] = value

	return v
}

// Get returns a variable.
func (v *Variables) Get(key string) (string, bool) {
	value, ok := v.values[key]
	return value, ok
}

// Keys returns the keys in insertion order.
func (v *Variables) Keys() []string {
	return append([]string(nil), v.keys...)
}

func (v *Variables) Len() int {
	return len(v.keys)
}

func (v *Variables) String() string {
	opening, closing, sep := v.Type.delimiters()

	pairs := make([]string, 0, len(v.keys))
	for _, k := range v.keys {
		pairs = append(pairs, k+"="+escapeValue(v.values[k]))
	}

	return string(opening) + strings.Join(pairs, sep) + string(closing)
}

// ParseVariables parses a bracketed variable block.
func ParseVariables(s string) (*Variables, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return nil, fmt.Errorf("%w: variables %q too short", ErrOriginateSyntax, s)
	}

	t, ok := variablesTypeFor(s[0])
	if !ok {
		return nil, fmt.Errorf("%w: variables %q have no opening bracket", ErrOriginateSyntax, s)
	}

	_, closing, sep := t.delimiters()
	if s[len(s)-1] != closing {
		return nil, fmt.Errorf("%w: variables %q are not closed by %q", ErrOriginateSyntax, s, closing)
	}

	parts, err := Split(s[1:len(s)-1], sep)
	if err != nil {
		return nil, err
	}

	vars := NewVariables(t)
	for _, part := range parts {
		key, value, found := strings.Cut(part, "=")
		if !found {
			return nil, fmt.Errorf("%w: variable %q has no value", ErrOriginateSyntax, part)
		}

		vars.Set(strings.TrimSpace(key), unescapeValue(strings.TrimSpace(value)))
	}

	return vars, nil
}

func escapeValue(v string) string {
	v = strings.ReplaceAll(v, ",", `\,`)
	v = strings.ReplaceAll(v, "'", `\'`)

	if strings.Contains(v, " ") {
		return "'" + v + "'"
	}

	return v
}

func unescapeValue(v string) string {
	if len(v) >= 2 && v[0] == '\'' && v[len(v)-1] == '\'' && !escapedAt(v, len(v)-1) {
		v = v[1 : len(v)-1]
	}

	v = strings.ReplaceAll(v, `\,`, ",")
	v = strings.ReplaceAll(v, `\'`, "'")

	return v
}

// EndpointKind distinguishes the endpoint forms originate understands.
type EndpointKind int

const (
	// GenericEndpoint is any dial string, e.g. sofia/internal/1000@example.com.
	GenericEndpoint EndpointKind = iota
	// LoopbackEndpoint is loopback/<uri>/<context>.
	LoopbackEndpoint
	// SofiaGatewayEndpoint is sofia/gateway/<gateway>/<uri>.
	SofiaGatewayEndpoint
)

const (
	loopbackPrefix     = "loopback/"
	sofiaGatewayPrefix = "sofia/gateway/"
)

// Endpoint is the call URL of an originate.
type Endpoint struct {
	Kind      EndpointKind
	URI       string
	Context   string
	Gateway   string
	Variables *Variables
}

func (e Endpoint) String() string {
	var vars string
	if e.Variables != nil && e.Variables.Len() > 0 {
		vars = e.Variables.String()
	}

	switch e.Kind {
	case LoopbackEndpoint:
		return vars + loopbackPrefix + e.URI + "/" + e.Context
	case SofiaGatewayEndpoint:
		return vars + sofiaGatewayPrefix + e.Gateway + "/" + e.URI
	default:
		return vars + e.URI
	}
}

// ParseEndpoint parses a call URL with an optional leading variable block.
func ParseEndpoint(s string) (Endpoint, error) {
	var ep Endpoint

	s = strings.TrimSpace(s)
	if s == "" {
		return ep, fmt.Errorf("%w: empty endpoint", ErrOriginateSyntax)
	}

	if t, ok := variablesTypeFor(s[0]); ok {
		_, closing, _ := t.delimiters()

		end := closingBracket(s, closing)
		if end < 0 {
			return ep, fmt.Errorf("%w: endpoint variables in %q are not closed", ErrOriginateSyntax, s)
		}

		vars, err := ParseVariables(s[:end+1])
		if err != nil {
			return ep, err
		}

		ep.Variables = vars
		s = s[end+1:]
	}

	switch {
	case strings.HasPrefix(s, loopbackPrefix) && strings.Contains(s[len(loopbackPrefix):], "/"):
		rest := s[len(loopbackPrefix):]
		idx := strings.LastIndex(rest, "/")
		ep.Kind = LoopbackEndpoint
		ep.URI = rest[:idx]
		ep.Context = rest[idx+1:]

	case strings.HasPrefix(s, sofiaGatewayPrefix) && strings.Contains(s[len(sofiaGatewayPrefix):], "/"):
		rest := s[len(sofiaGatewayPrefix):]
		ep.Kind = SofiaGatewayEndpoint
		ep.Gateway, ep.URI, _ = strings.Cut(rest, "/")

	default:
		ep.Kind = GenericEndpoint
		ep.URI = s
	}

	if ep.URI == "" {
		return ep, fmt.Errorf("%w: endpoint has no uri", ErrOriginateSyntax)
	}

	return ep, nil
}

// closingBracket finds closing outside single quotes.
func closingBracket(s string, closing byte) int {
	inQuote := false
	for i := 1; i < len(s); i++ {
		switch {
		case s[i] == '\'' && !escapedAt(s, i):
			inQuote = !inQuote
		case s[i] == closing && !inQuote:
			return i
		}
	}

	return -1
}

// Application is one application run on the answered leg. Extension marks a
// bare dialplan extension rather than an application.
type Application struct {
	Name      string
	Args      string
	Extension bool
}

// Format writes the application for the given dialplan: &name(args) for
// XML, name:args for inline.
func (a Application) Format(d DialplanType) string {
	if d == DialplanInline {
		return a.Name + ":" + a.Args
	}

	if a.Extension {
		return a.Name
	}

	return "&" + a.Name + "(" + a.Args + ")"
}

// ApplicationList is the ordered applications of an originate. Only the
// inline dialplan accepts more than one.
type ApplicationList []Application

// Format writes the list for the given dialplan.
func (l ApplicationList) Format(d DialplanType) (string, error) {
	if len(l) == 0 {
		return "", fmt.Errorf("%w: no applications", ErrOriginateSyntax)
	}

	if d != DialplanInline {
		if len(l) > 1 {
			return "", ErrTooManyApplications
		}

		return l[0].Format(d), nil
	}

	parts := make([]string, len(l))
	for i, app := range l {
		parts[i] = app.Format(d)
	}

	return strings.Join(parts, ","), nil
}

// ParseApplicationList parses the application argument of an originate.
func ParseApplicationList(s string, d DialplanType) (ApplicationList, error) {
	if d == DialplanInline {
		parts, err := Split(s, ",")
		if err != nil {
			return nil, err
		}

		apps := make(ApplicationList, 0, len(parts))
		for _, part := range parts {
			name, args, found := strings.Cut(part, ":")
			if !found {
				return nil, fmt.Errorf("%w: invalid inline application %q", ErrOriginateSyntax, part)
			}

			apps = append(apps, Application{Name: name, Args: args})
		}

		return apps, nil
	}

	if rest, ok := strings.CutPrefix(s, "&"); ok {
		rest, ok = strings.CutSuffix(rest, ")")
		if !ok {
			return nil, fmt.Errorf("%w: missing closing paren in %q", ErrOriginateSyntax, s)
		}

		name, args, found := strings.Cut(rest, "(")
		if !found {
			return nil, fmt.Errorf("%w: missing opening paren in %q", ErrOriginateSyntax, s)
		}

		return ApplicationList{{Name: name, Args: args}}, nil
	}

	return ApplicationList{{Name: s, Extension: true}}, nil
}

// placeholders for the positional fields before the last one set
const (
	defaultContext = "default"
	undefinedField = "undef"
)

// Originate describes an originate API command. Fields after Applications
// are optional.
type Originate struct {
	Endpoint     Endpoint
	Applications ApplicationList
	Dialplan     DialplanType

	Context        string
	CallerIDName   string
	CallerIDNumber string
	// Timeout in seconds, zero for the switch default.
	Timeout int
}

// Build writes the originate command line.
func (o Originate) Build() (string, error) {
	apps, err := o.Applications.Format(o.Dialplan)
	if err != nil {
		return "", err
	}

	fields := []string{"originate", o.Endpoint.String(), apps}

	var timeout string
	if o.Timeout > 0 {
		timeout = strconv.Itoa(o.Timeout)
	}

	tail := []struct{ value, placeholder string }{
		{string(o.Dialplan), string(DialplanXML)},
		{o.Context, defaultContext},
		{quoteField(o.CallerIDName), undefinedField},
		{quoteField(o.CallerIDNumber), undefinedField},
		{timeout, ""},
	}

	last := -1
	for i, f := range tail {
		if f.value != "" {
			last = i
		}
	}

	for i := 0; i <= last; i++ {
		if tail[i].value != "" {
			fields = append(fields, tail[i].value)
		} else {
			fields = append(fields, tail[i].placeholder)
		}
	}

	return strings.Join(fields, " "), nil
}

// String is Build without the error, an invalid originate renders as "".
func (o Originate) String() string {
	s, _ := o.Build()
	return s
}

// API returns the argument for Client.API or Client.BgAPI.
func (o Originate) API() (string, error) {
	s, err := o.Build()
	if err != nil {
		return "", err
	}

	return strings.TrimPrefix(s, "originate "), nil
}

// ParseOriginate parses an originate command line.
func ParseOriginate(s string) (Originate, error) {
	var o Originate

	tokens, err := Split(s, " ")
	if err != nil {
		return o, err
	}

	if len(tokens) < 3 || tokens[0] != "originate" {
		return o, fmt.Errorf("%w: %q", ErrOriginateSyntax, s)
	}

	if len(tokens) > 8 {
		return o, fmt.Errorf("%w: too many fields in %q", ErrOriginateSyntax, s)
	}

	if o.Endpoint, err = ParseEndpoint(tokens[1]); err != nil {
		return o, err
	}

	if len(tokens) > 3 {
		if o.Dialplan, err = ParseDialplanType(tokens[3]); err != nil {
			return o, err
		}
	}

	if o.Applications, err = ParseApplicationList(tokens[2], o.Dialplan); err != nil {
		return o, err
	}

	if len(tokens) > 4 {
		o.Context = tokens[4]
	}

	if len(tokens) > 5 {
		o.CallerIDName = unquoteField(tokens[5])
	}

	if len(tokens) > 6 {
		o.CallerIDNumber = unquoteField(tokens[6])
	}

	if len(tokens) > 7 {
		if o.Timeout, err = strconv.Atoi(tokens[7]); err != nil || o.Timeout < 0 {
			return o, fmt.Errorf("%w: bad timeout %q", ErrOriginateSyntax, tokens[7])
		}
	}

	return o, nil
}

func quoteField(s string) string {
	if strings.Contains(s, " ") {
		return "'" + s + "'"
	}

	return s
}

func unquoteField(s string) string {
	if s == undefinedField {
		return ""
	}

	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return s[1 : len(s)-1]
	}

	return s
}

package curl

type optKind int

const (
	// optNone is a switch without an argument.
	optNone optKind = iota
	// optVal consumes exactly one argument.
	optVal
)

type optRole int

const (
	roleIgnored optRole = iota
	roleMethod
	roleHeader
	roleBody
	roleURL
)

type optDef struct {
	name string
	kind optKind
	role optRole
}

// defs is keyed by long option name.
var defs = map[string]*optDef{
	"request":     {name: "request", kind: optVal, role: roleMethod},
	"header":      {name: "header", kind: optVal, role: roleHeader},
	"data":        {name: "data", kind: optVal, role: roleBody},
	"data-raw":    {name: "data-raw", kind: optVal, role: roleBody},
	"data-ascii":  {name: "data-ascii", kind: optVal, role: roleBody},
	"data-binary": {name: "data-binary", kind: optVal, role: roleBody},
	"url":         {name: "url", kind: optVal, role: roleURL},

	// Known to curl but outside the request model. They are parsed so their
	// argument is not mistaken for the URL, then reported as warnings.
	"user":              {name: "user", kind: optVal},
	"user-agent":        {name: "user-agent", kind: optVal},
	"referer":           {name: "referer", kind: optVal},
	"cookie":            {name: "cookie", kind: optVal},
	"cookie-jar":        {name: "cookie-jar", kind: optVal},
	"form":              {name: "form", kind: optVal},
	"form-string":       {name: "form-string", kind: optVal},
	"data-urlencode":    {name: "data-urlencode", kind: optVal},
	"json":              {name: "json", kind: optVal},
	"upload-file":       {name: "upload-file", kind: optVal},
	"output":            {name: "output", kind: optVal},
	"max-time":          {name: "max-time", kind: optVal},
	"connect-timeout":   {name: "connect-timeout", kind: optVal},
	"max-redirs":        {name: "max-redirs", kind: optVal},
	"retry":             {name: "retry", kind: optVal},
	"retry-delay":       {name: "retry-delay", kind: optVal},
	"retry-max-time":    {name: "retry-max-time", kind: optVal},
	"proxy":             {name: "proxy", kind: optVal},
	"cacert":            {name: "cacert", kind: optVal},
	"cert":              {name: "cert", kind: optVal},
	"key":               {name: "key", kind: optVal},
	"dump-header":       {name: "dump-header", kind: optVal},
	"write-out":         {name: "write-out", kind: optVal},
	"stderr":            {name: "stderr", kind: optVal},
	"trace":             {name: "trace", kind: optVal},
	"trace-ascii":       {name: "trace-ascii", kind: optVal},
	"resolve":           {name: "resolve", kind: optVal},
	"connect-to":        {name: "connect-to", kind: optVal},
	"interface":         {name: "interface", kind: optVal},
	"dns-servers":       {name: "dns-servers", kind: optVal},
	"config":            {name: "config", kind: optVal},
	"head":              {name: "head", kind: optNone},
	"get":               {name: "get", kind: optNone},
	"compressed":        {name: "compressed", kind: optNone},
	"insecure":          {name: "insecure", kind: optNone},
	"location":          {name: "location", kind: optNone},
	"silent":            {name: "silent", kind: optNone},
	"show-error":        {name: "show-error", kind: optNone},
	"verbose":           {name: "verbose", kind: optNone},
	"include":           {name: "include", kind: optNone},
	"fail":              {name: "fail", kind: optNone},
	"globoff":           {name: "globoff", kind: optNone},
	"no-buffer":         {name: "no-buffer", kind: optNone},
	"remote-name":       {name: "remote-name", kind: optNone},
	"retry-connrefused": {name: "retry-connrefused", kind: optNone},
	"http1.1":           {name: "http1.1", kind: optNone},
	"http2":             {name: "http2", kind: optNone},
	"http3":             {name: "http3", kind: optNone},
	"progress-bar":      {name: "progress-bar", kind: optNone},
}

var shortDefs = map[rune]*optDef{
	'X': defs["request"],
	'H': defs["header"],
	'd': defs["data"],
	'u': defs["user"],
	'A': defs["user-agent"],
	'e': defs["referer"],
	'b': defs["cookie"],
	'c': defs["cookie-jar"],
	'F': defs["form"],
	'T': defs["upload-file"],
	'o': defs["output"],
	'm': defs["max-time"],
	'x': defs["proxy"],
	'E': defs["cert"],
	'D': defs["dump-header"],
	'w': defs["write-out"],
	'K': defs["config"],
	'I': defs["head"],
	'G': defs["get"],
	'k': defs["insecure"],
	'L': defs["location"],
	's': defs["silent"],
	'S': defs["show-error"],
	'v': defs["verbose"],
	'i': defs["include"],
	'f': defs["fail"],
	'g': defs["globoff"],
	'N': defs["no-buffer"],
	'O': defs["remote-name"],
	'#': defs["progress-bar"],
}

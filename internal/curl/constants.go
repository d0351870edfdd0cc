package curl

const (
	cmdCurl    = "curl"
	cmdSudo    = "sudo"
	cmdEnv     = "env"
	cmdCommand = "command"
	cmdTime    = "time"
	cmdNoGlob  = "noglob"
)

var promptPrefixes = []string{"$", "%", ">"}

const (
	schemeHTTP     = "http://"
	schemeHTTPS    = "https://"
	methodFallback = "GET"
	methodWithBody = "POST"
)

const (
	warnFlagFormat     = "unsupported flag %s (ignored)"
	warnArgFormat      = "unexpected argument %q (ignored)"
	warnMissingArg     = "missing argument for %s"
	warnExtraBody      = "additional %s ignored; only the first body is used"
	warnHeaderNoColon  = "header %q has no name (ignored)"
	warnUnknownMethod  = "non-standard method %s"
	warnUnterminated   = "unterminated quote or escape; kept partial argument"
	warnNotCurlCommand = "input does not start with curl"
)

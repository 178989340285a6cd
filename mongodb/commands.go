package mongodb

import (
	"fmt"

	"github.com/boz/bringup/command"
	"github.com/boz/bringup/lifecycle"
)

// Exit codes of the convergence check script.
const (
	checkPrimary    = 0
	checkConverging = 2
	checkDiverged   = 3
)

const checkScript = `var code = 4;
try {
  var status = db.adminCommand({replSetGetStatus: 1});
  if (status.ok === 1) {
    switch (status.myState) {
    case 1: code = 0; break;
    case 0: case 2: case 3: case 5: case 6: case 9: code = 2; break;
    default: code = 3;
    }
  }
} catch (e) {
  code = 4;
}
quit(code);`

const awaitScript = `var attempt = 1;
while (db.runCommand({isMaster: 1}).ismaster == false) {
  if (attempt >= %d) { quit(1); }
  print('An attempt to await for a single node replica set initialization: ' + attempt);
  sleep(%d);
  attempt++;
}`

// Eval is a mongo shell expression run inside the container.  It
// prefers mongosh and falls back to the legacy shell.
type Eval struct {
	kind command.Kind
	Expr string
}

func NewEval(kind command.Kind, expr string) Eval {
	return Eval{kind: kind, Expr: expr}
}

func (e Eval) Kind() command.Kind {
	return e.kind
}

func (e Eval) Args() []string {
	q := command.Quote(e.Expr)
	return []string{
		"sh", "-c",
		"if command -v mongosh >/dev/null 2>&1; " +
			"then mongosh --quiet --eval " + q + "; " +
			"else mongo --quiet --eval " + q + "; fi",
	}
}

type protocol struct{}

func (protocol) Name() string {
	return "mongodb"
}

func (protocol) Initiate() command.Command {
	return NewEval(command.KindInitiate, "rs.initiate();")
}

func (protocol) Check() lifecycle.Check {
	return lifecycle.Check{
		Command:  NewEval(command.KindCheck, checkScript),
		Evaluate: evaluateCheck,
	}
}

func (protocol) Await(cfg lifecycle.Config) command.Command {
	delay := cfg.Delay.Milliseconds()
	if delay <= 0 {
		delay = lifecycle.DefaultDelay.Milliseconds()
	}
	return NewEval(command.KindAwait, fmt.Sprintf(awaitScript, cfg.Attempts, delay))
}

func evaluateCheck(r command.Result) lifecycle.Outcome {
	switch r.ExitCode {
	case checkPrimary:
		return lifecycle.Converged
	case checkConverging:
		return lifecycle.Converging
	case checkDiverged:
		return lifecycle.Diverged
	default:
		return lifecycle.Uninitialized
	}
}

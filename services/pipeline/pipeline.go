package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"genbiapi/models"
	"genbiapi/pkg/logger"
	"genbiapi/services/executor"
	"genbiapi/services/oracle"
	"genbiapi/services/policy"
	"genbiapi/services/schema"
)

// Options bounds a pipeline's retry and resource behavior.
type Options struct {
	MaxRefinements int           // refinement attempts before giving up
	Budget         time.Duration // wall-clock budget for one run
	MaxResultRows  int           // row cap enforced on execution
}

// Pipeline owns the generation state machine. One Pipeline serves many
// concurrent requests; all per-request data lives in a pipelineState value.
type Pipeline struct {
	provider  *schema.Provider
	builder   *schema.ContextBuilder
	predictor *schema.TablePredictor
	policy    *policy.Engine
	oracle    oracle.CompletionOracle
	validator *Validator
	executor  executor.QueryExecutor
	extract   extractionChain
	opts      Options
}

// New creates a pipeline from its collaborators.
func New(provider *schema.Provider, builder *schema.ContextBuilder, predictor *schema.TablePredictor,
	policyEngine *policy.Engine, completionOracle oracle.CompletionOracle,
	validator *Validator, exec executor.QueryExecutor, opts Options) *Pipeline {
	if opts.MaxRefinements < 0 {
		opts.MaxRefinements = 0
	}
	if opts.Budget <= 0 {
		opts.Budget = 60 * time.Second
	}
	return &Pipeline{
		provider:  provider,
		builder:   builder,
		predictor: predictor,
		policy:    policyEngine,
		oracle:    completionOracle,
		validator: validator,
		executor:  exec,
		extract:   newSQLExtractionChain(),
		opts:      opts,
	}
}

// ProcessQuery runs one question through the state machine and always
// returns a structured result. The run terminates in bounded time: the
// refinement counter caps the only cycle and the wall-clock budget forces
// termination regardless of state.
func (p *Pipeline) ProcessQuery(ctx context.Context, question string, principal *models.Principal) *Result {
	ctx, cancel := context.WithTimeout(ctx, p.opts.Budget)
	defer cancel()

	st := &pipelineState{question: question, principal: principal}

	current := stateAnalyze
	for current != stateEnd {
		if ctx.Err() != nil {
			st.outcome = OutcomeTimeout
			st.errorMsg = "pipeline wall-clock budget exceeded"
			st.confidence = 0
			break
		}
		switch current {
		case stateAnalyze:
			current = p.analyze(ctx, st)
		case stateGenerate:
			current = p.generate(ctx, st)
		case stateValidate:
			current = p.validate(ctx, st)
		case stateRefine:
			current = p.refine(ctx, st)
		case stateExecute:
			current = p.execute(ctx, st)
		}
	}

	return resultFrom(st)
}

// analyze builds the query context and runs the schema-level authorization
// gate. No generation happens unless every predicted table is authorized.
func (p *Pipeline) analyze(ctx context.Context, st *pipelineState) state {
	graph, err := p.provider.GetSchema(ctx)
	if err != nil {
		st.outcome = OutcomeConnectionUnavailable
		st.errorMsg = err.Error()
		return stateEnd
	}

	st.context = p.builder.Build(st.question, graph)
	if len(st.context.Tables) == 0 {
		st.outcome = OutcomeNoRelevantSchema
		st.errorMsg = "no schema elements are relevant to the question"
		return stateEnd
	}

	st.requiredTables = p.predictor.PredictRequiredTables(ctx, st.question, st.context)

	decision := p.policy.AuthorizeTables(st.requiredTables, st.context, st.principal)
	st.authDecision = &decision
	if !decision.Authorized {
		st.outcome = OutcomeAccessDenied
		st.errorMsg = decision.Reason
		return stateEnd
	}

	return stateGenerate
}

// generate asks the oracle for a first candidate and runs the
// statement-level authorization gate on it.
func (p *Pipeline) generate(ctx context.Context, st *pipelineState) state {
	answer, err := p.oracle.Complete(ctx, buildGenerationPrompt(st.question, st.context))
	if err != nil {
		logger.Warnf("SQL generation failed: %v", err)
		st.validationError = fmt.Sprintf("generation failed: %v", err)
		st.candidateSQL = ""
		return p.refineOrGiveUp(st)
	}

	st.candidateSQL = p.extract.Extract(answer)
	if st.candidateSQL == "" {
		logger.Warnf("No SQL statement could be extracted from oracle output")
		st.validationError = "oracle output contained no SQL statement"
		return p.refineOrGiveUp(st)
	}

	return p.authorizeStatement(st)
}

// refine asks the oracle to correct the previous candidate using the
// validator's error text, then re-runs the statement gate: a refined
// statement can newly reference a forbidden object.
func (p *Pipeline) refine(ctx context.Context, st *pipelineState) state {
	st.refinementCount++
	logger.Infof("Refining SQL, attempt %d of %d: %s", st.refinementCount, p.opts.MaxRefinements, st.validationError)

	answer, err := p.oracle.Complete(ctx, buildRefinementPrompt(st))
	if err != nil {
		logger.Warnf("SQL refinement failed: %v", err)
		st.validationError = fmt.Sprintf("refinement failed: %v", err)
		st.candidateSQL = ""
		return p.refineOrGiveUp(st)
	}

	refined := p.extract.Extract(answer)
	if refined == "" {
		st.validationError = "oracle output contained no SQL statement"
		st.candidateSQL = ""
		return p.refineOrGiveUp(st)
	}
	st.candidateSQL = refined

	return p.authorizeStatement(st)
}

// authorizeStatement is the layer-2 gate shared by generate and refine.
// A denial is never refined around: refinement addresses correctness
// errors, not policy.
func (p *Pipeline) authorizeStatement(st *pipelineState) state {
	decision := p.policy.AuthorizeStatement(st.candidateSQL, st.principal)
	st.authDecision = &decision
	if !decision.Authorized {
		st.outcome = OutcomeAccessDenied
		st.errorMsg = decision.Reason
		st.confidence = 0
		return stateEnd
	}
	return stateValidate
}

// validate runs the static and dry-run checks on the current candidate.
func (p *Pipeline) validate(ctx context.Context, st *pipelineState) state {
	res := p.validator.Validate(ctx, st.candidateSQL, st.principal)
	if res.Valid {
		st.confidence = res.Confidence
		st.validationError = ""
		return stateExecute
	}

	if res.ConnUnavailable {
		st.outcome = OutcomeConnectionUnavailable
		st.errorMsg = res.Error
		st.confidence = 0
		return stateEnd
	}

	st.validationError = res.Error

	// A denylist hit is a safety rejection, not a correctness error; the
	// oracle is not asked to work around it.
	if isForbiddenOperation(res.Error) {
		st.outcome = OutcomeValidationFailed
		st.errorMsg = res.Error
		st.confidence = 0
		return stateEnd
	}

	return p.refineOrGiveUp(st)
}

// refineOrGiveUp routes a failed stage into the refinement cycle while
// attempts remain, and to a terminal outcome once they are exhausted.
func (p *Pipeline) refineOrGiveUp(st *pipelineState) state {
	if st.refinementCount < p.opts.MaxRefinements {
		return stateRefine
	}

	st.confidence = 0
	st.errorMsg = st.validationError
	if st.candidateSQL == "" {
		// no candidate ever survived extraction
		st.outcome = OutcomeGenerationFailed
	} else if p.opts.MaxRefinements == 0 {
		st.outcome = OutcomeValidationFailed
	} else {
		st.outcome = OutcomeMaxRefinementsExceeded
	}
	return stateEnd
}

// execute runs the validated statement under the principal's connection
// with the result-row cap enforced. Failures here are terminal: validation
// already passed a dry run, so a failure indicates environment or
// permission drift, not a statement to refine.
func (p *Pipeline) execute(ctx context.Context, st *pipelineState) state {
	execSQL := st.candidateSQL
	if !limitingClausePattern.MatchString(execSQL) {
		execSQL = fmt.Sprintf("%s LIMIT %d", execSQL, p.opts.MaxResultRows)
	}

	result, err := p.executor.Execute(ctx, execSQL, st.principal, p.opts.MaxResultRows)
	if err != nil {
		if errors.Is(err, executor.ErrConnectionUnavailable) {
			st.outcome = OutcomeConnectionUnavailable
		} else {
			st.outcome = OutcomeExecutionFailed
		}
		st.errorMsg = err.Error()
		logger.Errorf("Execution failed after successful validation: %v", err)
		return stateEnd
	}

	st.executionResult = result
	st.outcome = OutcomeOK
	logger.Infof("Query executed successfully, returned %d rows", len(result.Rows))
	return stateEnd
}

func isForbiddenOperation(errText string) bool {
	return errText == "statement must start with SELECT" ||
		strings.HasPrefix(errText, "forbidden SQL operation detected")
}

func resultFrom(st *pipelineState) *Result {
	r := &Result{
		Question:        st.question,
		Confidence:      st.confidence,
		RefinementCount: st.refinementCount,
		Outcome:         st.outcome,
		Error:           st.errorMsg,
	}
	if st.candidateSQL != "" {
		r.SQL = st.candidateSQL
	}
	if st.outcome == OutcomeOK {
		r.Rows = st.executionResult
	}
	if st.outcome == OutcomeAccessDenied && st.authDecision != nil {
		r.DeniedLayer = st.authDecision.Layer
		// never leak a statement the principal was denied at the schema layer
		if st.authDecision.Layer == policy.LayerSchema {
			r.SQL = ""
		}
	}
	return r
}

func buildGenerationPrompt(question string, qc *schema.QueryContext) string {
	kind := classifyQuestion(question)
	return fmt.Sprintf(`You are an expert SQL query generator. Convert the natural language
question into a single syntactically correct MySQL SELECT statement.

Guidelines:
1. Use appropriate JOINs when multiple tables are involved
2. Apply proper WHERE clauses for filtering
3. Use aggregate functions (COUNT, SUM, AVG) when needed
4. Include ORDER BY and LIMIT clauses when appropriate
5. Only use tables and columns that exist in the schema below
6. Return only the SQL query without explanations

Schema:
%s
Examples:
%s
Question: %s

Return only the SQL query.`, qc.Serialize(), examplesFor(kind), question)
}

func buildRefinementPrompt(st *pipelineState) string {
	return fmt.Sprintf(`The previous SQL query had an error. Please fix it.

Original question: %s
Previous SQL: %s
Error: %s

Schema:
%s
Generate a corrected MySQL SELECT statement that addresses the error while
fulfilling the original question. Return only the corrected SQL query.`,
		st.question, st.candidateSQL, st.validationError, st.context.Serialize())
}

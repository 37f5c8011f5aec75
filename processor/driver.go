package processor

import (
	"fmt"

	"github.com/jhump/savestate/internal/logger"
)

// Driver runs the SaveState pipeline over a batch of declarations: validate,
// bind, classify, group by owner, then generate and write one adapter per
// owner.
type Driver struct {
	Validator  Validator
	Classifier Classifier
	Generator  StoreAdapterGenerator
	Messager   *Messager
	Logger     logger.Logger
}

// NewDriver returns a driver that reports to msgs. A nil log discards
// progress messages.
func NewDriver(msgs *Messager, log logger.Logger) *Driver {
	if log == nil {
		log = logger.NewNop()
	}
	return &Driver{Messager: msgs, Logger: log}
}

// SaveStateProcessor is the Processor that generates store adapters for the
// package in ctx.
func SaveStateProcessor(ctx *Context, output OutputFactory) (bool, error) {
	d := NewDriver(ctx.Messager, ctx.Logger)
	d.Validator.IsStandard = ctx.IsStandard
	d.Classifier = Classifier{Pkg: ctx.Package.Pkg, IsStandard: ctx.IsStandard}
	return d.Process(ctx.Declarations(), output), nil
}

// Process handles one round of declarations. It never claims the
// annotation, so other processors still see it.
func (d *Driver) Process(decls []*DeclarationInfo, output OutputFactory) (claimed bool) {
	d.Emit(d.FindAndParseTargets(decls), output)
	return false
}

// FindAndParseTargets validates every declaration and groups the valid ones
// by owner. Invalid declarations are reported and dropped. A field whose type
// is not supported marks its unit as failed.
func (d *Driver) FindAndParseTargets(decls []*DeclarationInfo) *TargetTable {
	table := NewTargetTable()
	for _, decl := range decls {
		if !d.Validator.Validate(decl, d.Messager) {
			continue
		}
		binding := NewFieldBinding(decl)
		binding.Class = d.Classifier.ClassifyBinding(binding)
		unit := table.LookupOrCreate(decl.Enclosing)
		if !binding.Class.Supported() {
			d.Messager.Errorf(decl.Pos, "@SaveState fields of type %s are not supported: %s. (%s)",
				decl.Type, binding.Class.Reason, decl.QualifiedName())
			unit.Failed = true
			continue
		}
		unit.addField(binding)
	}
	return table
}

// Emit generates and writes every unit of the table that did not fail.
// Failures are reported per unit and do not stop the others.
func (d *Driver) Emit(table *TargetTable, output OutputFactory) {
	for _, u := range table.Units() {
		if u.Failed {
			d.Logger.Debug("skipping store adapter", "owner", u.QualifiedOwnerName)
			continue
		}
		if err := d.emitUnit(u, output); err != nil {
			d.Messager.Errorf(u.Pos, "unable to write store adapter for type %s: %v", u.QualifiedOwnerName, err)
			continue
		}
		d.Logger.Debug("wrote store adapter", "owner", u.QualifiedOwnerName, "file", u.Target().Path(), "fields", len(u.Fields))
	}
}

func (d *Driver) emitUnit(u *GenerationUnit, output OutputFactory) (err error) {
	src, err := d.Generator.Generate(u)
	if err != nil {
		return err
	}
	w, err := output(u.Target())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := w.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", u.FileName, closeErr)
		}
	}()
	_, err = w.Write(src)
	return err
}

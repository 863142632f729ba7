/*
Copyright 2024 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package v1alpha1

import (
	"fmt"
	"math"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// ValidateOptimizationConfig checks a defaulted configuration. Every problem
// is reported, not only the first one.
func ValidateOptimizationConfig(obj *OptimizationConfig) field.ErrorList {
	var allErrs field.ErrorList
	if obj.APIVersion != APIVersion {
		allErrs = append(allErrs, field.NotSupported(field.NewPath("apiVersion"), obj.APIVersion, []string{APIVersion}))
	}
	if obj.Kind != Kind {
		allErrs = append(allErrs, field.NotSupported(field.NewPath("kind"), obj.Kind, []string{Kind}))
	}
	allErrs = append(allErrs, validateDesign(&obj.Design, field.NewPath("design"))...)
	allErrs = append(allErrs, validateSweep(&obj.Sweep, field.NewPath("sweep"))...)
	allErrs = append(allErrs, validateOptimizer(&obj.Optimizer, field.NewPath("optimizer"))...)
	allErrs = append(allErrs, validateSolver(&obj.Solver, field.NewPath("solver"))...)
	allErrs = append(allErrs, validateOutput(&obj.Output, field.NewPath("output"))...)
	return allErrs
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func validateDesign(d *DesignArgs, path *field.Path) field.ErrorList {
	var allErrs field.ErrorList
	if len(d.LowerBounds) != NumVariables {
		allErrs = append(allErrs, field.Invalid(path.Child("lowerBounds"), len(d.LowerBounds), fmt.Sprintf("must have %d entries", NumVariables)))
	}
	if len(d.UpperBounds) != NumVariables {
		allErrs = append(allErrs, field.Invalid(path.Child("upperBounds"), len(d.UpperBounds), fmt.Sprintf("must have %d entries", NumVariables)))
	}
	if len(d.LowerBounds) == len(d.UpperBounds) {
		for i := range d.LowerBounds {
			lo, hi := d.LowerBounds[i], d.UpperBounds[i]
			switch {
			case !finite(lo):
				allErrs = append(allErrs, field.Invalid(path.Child("lowerBounds").Index(i), lo, "must be finite"))
			case !finite(hi):
				allErrs = append(allErrs, field.Invalid(path.Child("upperBounds").Index(i), hi, "must be finite"))
			case lo > hi:
				allErrs = append(allErrs, field.Invalid(path.Child("lowerBounds").Index(i), lo, fmt.Sprintf("must not exceed upper bound %g", hi)))
			}
		}
	}
	if d.MinFeature != nil && (*d.MinFeature < 0 || !finite(*d.MinFeature)) {
		allErrs = append(allErrs, field.Invalid(path.Child("minFeature"), *d.MinFeature, "must be a non-negative number"))
	}
	if d.Decimals != nil && (*d.Decimals < 0 || *d.Decimals > 12) {
		allErrs = append(allErrs, field.Invalid(path.Child("decimals"), *d.Decimals, "must be between 0 and 12"))
	}
	if d.WgWidth != nil && *d.WgWidth <= 0 {
		allErrs = append(allErrs, field.Invalid(path.Child("wgWidth"), *d.WgWidth, "must be positive"))
	}
	if d.CladdingOffset != nil && *d.CladdingOffset < 0 {
		allErrs = append(allErrs, field.Invalid(path.Child("claddingOffset"), *d.CladdingOffset, "must not be negative"))
	}
	if d.DataTag == "" {
		allErrs = append(allErrs, field.Required(path.Child("dataTag"), ""))
	}
	return allErrs
}

func validateSweep(s *SweepArgs, path *field.Path) field.ErrorList {
	var allErrs field.ErrorList
	if s.Start == nil || s.Stop == nil || s.Count == nil || s.Center == nil {
		return append(allErrs, field.Required(path, "start, stop, count and center must be set"))
	}
	start, stop, count, center := *s.Start, *s.Stop, *s.Count, *s.Center
	if !finite(start) || start <= 0 {
		allErrs = append(allErrs, field.Invalid(path.Child("start"), start, "must be a positive wavelength"))
	}
	if !finite(stop) || stop < start {
		allErrs = append(allErrs, field.Invalid(path.Child("stop"), stop, "must not be below start"))
	}
	if count < 1 {
		allErrs = append(allErrs, field.Invalid(path.Child("count"), count, "must be at least 1"))
	} else if count > 1 && stop == start {
		allErrs = append(allErrs, field.Invalid(path.Child("count"), count, "must be 1 when start equals stop"))
	}
	if !finite(center) || center < start || center > stop {
		allErrs = append(allErrs, field.Invalid(path.Child("center"), center, fmt.Sprintf("must lie within [%g, %g]", start, stop)))
	}
	return allErrs
}

func validateOptimizer(o *OptimizerArgs, path *field.Path) field.ErrorList {
	var allErrs field.ErrorList
	positive := func(name string, v *int) {
		if v != nil && *v <= 0 {
			allErrs = append(allErrs, field.Invalid(path.Child(name), *v, "must be positive"))
		}
	}
	positive("popSize", o.PopSize)
	positive("numOffspring", o.NumOffspring)
	positive("numGenerations", o.NumGenerations)
	positive("workers", o.Workers)
	positive("topN", o.TopN)

	probability := func(name string, v *float64) {
		if v != nil && (!finite(*v) || *v < 0 || *v > 1) {
			allErrs = append(allErrs, field.Invalid(path.Child(name), *v, "must be within [0, 1]"))
		}
	}
	probability("crossoverProb", o.CrossoverProb)
	probability("mutationProb", o.MutationProb)

	index := func(name string, v *float64) {
		if v != nil && (!finite(*v) || *v <= 0) {
			allErrs = append(allErrs, field.Invalid(path.Child(name), *v, "must be a positive distribution index"))
		}
	}
	index("crossoverEta", o.CrossoverEta)
	index("mutationEta", o.MutationEta)

	if o.RefDirPartitions != nil && *o.RefDirPartitions < 0 {
		allErrs = append(allErrs, field.Invalid(path.Child("refDirPartitions"), *o.RefDirPartitions, "must not be negative"))
	}
	return allErrs
}

func validateSolver(s *SolverArgs, path *field.Path) field.ErrorList {
	var allErrs field.ErrorList
	if !s.DryRun && s.Command == "" {
		allErrs = append(allErrs, field.Required(path.Child("command"), "required unless dryRun is set"))
	}
	if s.MeshAccuracy != nil && *s.MeshAccuracy < 0 {
		allErrs = append(allErrs, field.Invalid(path.Child("meshAccuracy"), *s.MeshAccuracy, "must not be negative"))
	}
	return allErrs
}

var supportedArchives = []string{"", "memory", "sqlite"}

func validateOutput(o *OutputArgs, path *field.Path) field.ErrorList {
	var allErrs field.ErrorList
	supported := false
	for _, a := range supportedArchives {
		supported = supported || a == o.Archive
	}
	if !supported {
		allErrs = append(allErrs, field.NotSupported(path.Child("archive"), o.Archive, supportedArchives[1:]))
	}
	if o.Archive == "sqlite" && o.ArchivePath == "" {
		allErrs = append(allErrs, field.Required(path.Child("archivePath"), "required for the sqlite archive"))
	}
	return allErrs
}

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
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	GroupName = "bdc.siph-lab.io"
	Version   = "v1alpha1"
	Kind      = "OptimizationConfig"
)

// APIVersion is the apiVersion written in configuration files.
var APIVersion = GroupName + "/" + Version

// OptimizationConfig describes one taper optimization run
type OptimizationConfig struct {
	metav1.TypeMeta `json:",inline"`

	Design    DesignArgs    `json:"design"`
	Sweep     SweepArgs     `json:"sweep"`
	Optimizer OptimizerArgs `json:"optimizer"`
	Solver    SolverArgs    `json:"solver"`
	Output    OutputArgs    `json:"output"`
}

// DesignArgs describes the search space and the fixed device fields
type DesignArgs struct {
	// DataRoot is the directory under which evaluated candidates are persisted
	// +optional
	DataRoot string `json:"dataRoot,omitempty"`
	// DataTag names the design family, the second path element under DataRoot
	// +optional
	DataTag string `json:"dataTag,omitempty"`

	// LowerBounds and UpperBounds bound the 12 decision variables:
	// waveguide length, taper length, 9 inner upper-taper widths and coupler spacing
	// +optional
	LowerBounds []float64 `json:"lowerBounds,omitempty"`
	// +optional
	UpperBounds []float64 `json:"upperBounds,omitempty"`

	// MinFeature is the floor below which waveguide length, taper length or
	// coupler spacing make a candidate infeasible
	// +optional
	MinFeature *float64 `json:"minFeature,omitempty"`
	// Decimals is the rounding precision applied to every candidate
	// +optional
	Decimals *int `json:"decimals,omitempty"`

	// WgWidth is the fixed waveguide width, also used for the taper ends and the lower taper
	// +optional
	WgWidth *float64 `json:"wgWidth,omitempty"`
	// +optional
	CladdingOffset *float64 `json:"claddingOffset,omitempty"`
}

// SweepArgs is the wavelength sweep shared by every evaluation, in micrometers
type SweepArgs struct {
	// +optional
	Start *float64 `json:"start,omitempty"`
	// +optional
	Stop *float64 `json:"stop,omitempty"`
	// +optional
	Count *int `json:"count,omitempty"`
	// Center is the wavelength at which powers and reflection are evaluated
	// +optional
	Center *float64 `json:"center,omitempty"`
}

// OptimizerArgs holds the genetic algorithm parameters
type OptimizerArgs struct {
	// +optional
	PopSize *int `json:"popSize,omitempty"`
	// NumOffspring defaults to PopSize
	// +optional
	NumOffspring *int `json:"numOffspring,omitempty"`
	// +optional
	NumGenerations *int `json:"numGenerations,omitempty"`

	// CrossoverProb is the chance that a pair of parents is recombined. Zero
	// disables recombination.
	// +optional
	CrossoverProb *float64 `json:"crossoverProb,omitempty"`
	// +optional
	CrossoverEta *float64 `json:"crossoverEta,omitempty"`
	// MutationProb is per variable, 1/n_var when unset or zero
	// +optional
	MutationProb *float64 `json:"mutationProb,omitempty"`
	// +optional
	MutationEta *float64 `json:"mutationEta,omitempty"`

	// +optional
	EliminateDuplicates *bool `json:"eliminateDuplicates,omitempty"`
	// +optional
	Seed *uint64 `json:"seed,omitempty"`
	// RefDirPartitions is the number of Das-Dennis partitions of the
	// objective simplex, 0 selects crowding-distance truncation
	// +optional
	RefDirPartitions *int `json:"refDirPartitions,omitempty"`

	// Workers bounds concurrent evaluations within a generation
	// +optional
	Workers *int `json:"workers,omitempty"`
	// Memoize reuses successful results of identical rounded candidates
	// +optional
	Memoize *bool `json:"memoize,omitempty"`
	// TopN is the length of the final report
	// +optional
	TopN *int `json:"topN,omitempty"`
}

// SolverArgs configures the simulation oracle
type SolverArgs struct {
	// Command is the solver executable. Required unless DryRun is set.
	// +optional
	Command string `json:"command,omitempty"`
	// +optional
	Args []string `json:"args,omitempty"`
	// +optional
	Env []string `json:"env,omitempty"`
	// OutputName is the Touchstone file the solver writes into the project folder
	// +optional
	OutputName string `json:"outputName,omitempty"`
	// +optional
	MeshAccuracy *int `json:"meshAccuracy,omitempty"`
	// +optional
	Materials map[string]string `json:"materials,omitempty"`
	// ReusePersisted reads back smatrix files left by earlier runs
	// +optional
	ReusePersisted bool `json:"reusePersisted,omitempty"`
	// DryRun replaces the solver with an ideal 3 dB coupler stub
	// +optional
	DryRun bool `json:"dryRun,omitempty"`
}

// OutputArgs selects the artifacts written at the end of a run
type OutputArgs struct {
	// +optional
	Dir string `json:"dir,omitempty"`
	// +optional
	HistoryPlot *bool `json:"historyPlot,omitempty"`
	// +optional
	ParetoPlot *bool `json:"paretoPlot,omitempty"`
	// +optional
	Workbook bool `json:"workbook,omitempty"`
	// MetricsFile receives the run metrics in the Prometheus text format
	// +optional
	MetricsFile string `json:"metricsFile,omitempty"`
	// Archive is "memory", "sqlite" or empty for no archive
	// +optional
	Archive string `json:"archive,omitempty"`
	// ArchivePath is the SQLite database file
	// +optional
	ArchivePath string `json:"archivePath,omitempty"`
}

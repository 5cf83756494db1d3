package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/binzume/fbx2gltf/converter"
)

type report struct {
	Input    string          `yaml:"input"`
	Output   string          `yaml:"output"`
	Warnings []reportWarning `yaml:"warnings,omitempty"`
	Takes    []reportTake    `yaml:"takes,omitempty"`
}

type reportWarning struct {
	Kind     string `yaml:"kind"`
	Message  string `yaml:"message"`
	Material string `yaml:"material,omitempty"`
	Slot     string `yaml:"slot,omitempty"`
	Path     string `yaml:"path,omitempty"`
	Take     string `yaml:"take,omitempty"`
}

type reportTake struct {
	Name     string  `yaml:"name"`
	Duration float64 `yaml:"duration"`
	Samples  int     `yaml:"samples"`
	Suspect  bool    `yaml:"suspect,omitempty"`
}

func newReport(input, output string, result *converter.Result) *report {
	r := &report{Input: input, Output: output}
	for _, w := range result.Warnings {
		rw := reportWarning{Kind: "other", Message: w.Error()}
		var res *converter.ResourceWarning
		var anim *converter.SuspectAnimationWarning
		switch {
		case errors.As(w, &res):
			rw.Kind = "texture"
			rw.Material = res.Material
			rw.Slot = fmt.Sprint(res.Slot)
			rw.Path = res.Path
		case errors.As(w, &anim):
			rw.Kind = "animation"
			rw.Take = anim.Take
		}
		r.Warnings = append(r.Warnings, rw)
	}
	for _, t := range result.Takes {
		r.Takes = append(r.Takes, reportTake(t))
	}
	return r
}

func writeReport(path string, r *report) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

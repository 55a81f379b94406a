package ast

// Clone returns a deep copy of the module. Nil slices stay nil.
func (m Module) Clone() Module {
	out := Module{
		Namespace: m.Namespace.clone(),
		DataTypes: cloneMap(m.DataTypes, DataType.clone),
		Enums:     cloneMap(m.Enums, Enum.clone),
		Services:  cloneMap(m.Services, Service.clone),
	}
	if m.Imports != nil {
		out.Imports = make([]Import, len(m.Imports))
		for i, imp := range m.Imports {
			out.Imports[i] = Import{
				Path:       imp.Path.clone(),
				Attributes: cloneAttributes(imp.Attributes),
				Comments:   cloneStrings(imp.Comments),
			}
		}
	}
	return out
}

func (n Namespace) clone() Namespace {
	return Namespace{Components: cloneStrings(n.Components)}
}

func (t TypeName) clone() TypeName {
	out := TypeName{
		Typ:        t.Typ.clone(),
		IsList:     t.IsList,
		Attributes: cloneAttributes(t.Attributes),
		Comments:   cloneStrings(t.Comments),
	}
	if t.Count != nil {
		c := *t.Count
		out.Count = &c
	}
	return out
}

func (d DataType) clone() DataType {
	return DataType{
		Properties: cloneMap(d.Properties, TypeName.clone),
		Attributes: cloneAttributes(d.Attributes),
		Comments:   cloneStrings(d.Comments),
	}
}

func (v EnumValue) clone() EnumValue {
	out := EnumValue{
		Attributes: cloneAttributes(v.Attributes),
		Comments:   cloneStrings(v.Comments),
	}
	if v.Value != nil {
		n := *v.Value
		out.Value = &n
	}
	return out
}

func (e Enum) clone() Enum {
	return Enum{
		Values:     cloneMap(e.Values, EnumValue.clone),
		Attributes: cloneAttributes(e.Attributes),
		Comments:   cloneStrings(e.Comments),
	}
}

func (f Function) clone() Function {
	out := Function{
		Arguments:  cloneMap(f.Arguments, TypeName.clone),
		Attributes: cloneAttributes(f.Attributes),
		Comments:   cloneStrings(f.Comments),
	}
	if f.ReturnType != nil {
		rt := f.ReturnType.clone()
		out.ReturnType = &rt
	}
	return out
}

func (e Event) clone() Event {
	return Event{
		Arguments:  cloneMap(e.Arguments, TypeName.clone),
		Attributes: cloneAttributes(e.Attributes),
		Comments:   cloneStrings(e.Comments),
	}
}

func (s Service) clone() Service {
	out := Service{
		Functions:  cloneMap(s.Functions, Function.clone),
		Events:     cloneMap(s.Events, Event.clone),
		Attributes: cloneAttributes(s.Attributes),
		Comments:   cloneStrings(s.Comments),
	}
	if s.Dependencies != nil {
		out.Dependencies = make([]Dependency, len(s.Dependencies))
		for i, d := range s.Dependencies {
			out.Dependencies[i] = Dependency{
				Name:       d.Name.clone(),
				Attributes: cloneAttributes(d.Attributes),
				Comments:   cloneStrings(d.Comments),
			}
		}
	}
	return out
}

func cloneMap[T any](m OrderedMap[T], cloneValue func(T) T) OrderedMap[T] {
	if m == nil {
		return nil
	}
	out := make(OrderedMap[T], len(m))
	for i, e := range m {
		out[i] = Entry[T]{Name: e.Name, Value: cloneValue(e.Value)}
	}
	return out
}

func cloneAttributes(attrs []Attribute) []Attribute {
	if attrs == nil {
		return nil
	}
	out := make([]Attribute, len(attrs))
	for i, a := range attrs {
		out[i] = Attribute{Name: a.Name.clone()}
		if a.Parameters != nil {
			out[i].Parameters = make([]Parameter, len(a.Parameters))
			for j, p := range a.Parameters {
				out[i].Parameters[j] = Parameter{Name: p.Name}
				if p.Value != nil {
					v := *p.Value
					out[i].Parameters[j].Value = &v
				}
			}
		}
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

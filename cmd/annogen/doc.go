// Command annogen generates annotation registration code from a manifest.
//
// Annotations are normally attached at startup with calls such as
// r.Intercept, r.OnParameter and r.MarkSingleton. When a package carries many
// of them, listing them in a manifest next to the types keeps the wiring
// reviewable and the generated code keeps it compile-checked.
//
// Usage
//
//	//go:generate go run github.com/sghaida/decor/cmd/annogen -manifest annotations.yaml -out annotations.gen.go
//
// Manifest format (annotations.yaml or annotations.json)
//
//	package: todos
//	function: RegisterAnnotations   # optional, this is the default
//	imports: [time]                 # optional fallback imports
//	owners:
//	  - type: TodoService
//	    constructor: NewTodoService # func(context.Context, []any) (*TodoService, error)
//	    singleton: true
//	    inject:
//	      - {index: 0, token: db}
//	    inputs: [Name]
//	    members:
//	      - name: SetEmail
//	        interceptors:
//	          - {expr: "wrap.Timeout(time.Second)"}
//	          - {expr: "wrap.Safe(r.Logger())", mode: stack}
//	        params:
//	          - index: 0
//	            transform: [trim, lowercase]
//	            validate: [required, "tag:email"]
//
// Generated output
//
//	func RegisterAnnotations(r *decor.Registry) error {
//		if err := decor.Define(r, NewTodoService); err != nil {
//			return err
//		}
//		if err := r.MarkSingleton(reflect.TypeFor[TodoService]()); err != nil {
//			return err
//		}
//		...
//		return nil
//	}
//
// Calls are emitted in manifest order. Interceptors attached in stack mode
// nest like stacked annotations: the last one listed is outermost.
//
// Imports
//
// Interceptor expressions may use any package. annogen reads the imports of
// the file holding the go:generate directive and keeps the ones the
// expressions reference, falling back to the manifest imports list.
// Identifiers no import provides fail generation.
//
// Parameter rules
//
//	transform: trim | lowercase | mask
//	validate:  required | gt:<number> | tag:<validator rule>
package main
